package reverie

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/wav"
)

// StreamLoader opens the audio stream behind a Sound. Streams that also
// implement io.Closer (beep.StreamSeekCloser) are closed once the deck
// drops them.
type StreamLoader func(s *Sound) (beep.StreamSeeker, beep.Format, error)

// WAVLoader decodes WAV files opened by open.
func WAVLoader(open func(src string) (io.ReadCloser, error)) StreamLoader {
	return func(s *Sound) (beep.StreamSeeker, beep.Format, error) {
		rc, err := open(s.Src)
		if err != nil {
			return nil, beep.Format{}, fmt.Errorf("open %s: %w", s.Src, err)
		}
		stream, format, err := wav.Decode(rc)
		if err != nil {
			rc.Close()
			return nil, beep.Format{}, fmt.Errorf("decode %s: %w", s.Src, err)
		}
		return stream, format, nil
	}
}

// MusicDeck plays background music for the host, cross-fading between
// tracks. It is itself a beep.Streamer: hand it to the speaker once and
// it streams silence when nothing plays.
type MusicDeck struct {
	rate beep.SampleRate
	load StreamLoader

	mu      sync.Mutex
	mixer   beep.Mixer
	current *fader
	tracks  []*fader
	sound   *Sound
}

// NewMusicDeck creates a deck mixing at rate.
func NewMusicDeck(rate beep.SampleRate, load StreamLoader) *MusicDeck {
	return &MusicDeck{rate: rate, load: load}
}

// Play switches to sound. The previous track fades out and the new one
// fades in over fade; a zero fade cuts. A nil sound only fades out.
func (d *MusicDeck) Play(sound *Sound, fade time.Duration) error {
	var next *fader
	if sound != nil {
		stream, format, err := d.load(sound)
		if err != nil {
			return fmt.Errorf("play background music: %w", err)
		}
		var s beep.Streamer = stream
		if sound.Loop {
			s = &looper{s: stream}
		}
		if format.SampleRate != 0 && format.SampleRate != d.rate {
			s = beep.Resample(4, format.SampleRate, d.rate, s)
		}
		next = newFader(withVolume(s, sound.Volume), 0, 1, d.rate.N(fade))
		if c, ok := stream.(io.Closer); ok {
			next.closer = c
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current != nil {
		d.current.fadeTo(0, d.rate.N(fade))
	}
	d.current = next
	d.sound = sound
	d.tracks = slices.DeleteFunc(d.tracks, (*fader).done)
	if next != nil {
		d.tracks = append(d.tracks, next)
		d.mixer.Add(next)
	}
	return nil
}

// Close stops every track and closes their streams.
func (d *MusicDeck) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var errs []error
	for _, f := range d.tracks {
		errs = append(errs, f.finish())
	}
	d.tracks = nil
	d.current = nil
	d.sound = nil
	d.mixer.Clear()
	return errors.Join(errs...)
}

// Current returns the sound last passed to Play.
func (d *MusicDeck) Current() *Sound {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sound
}

// Playing returns the number of tracks still audible, including ones
// fading out.
func (d *MusicDeck) Playing() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mixer.Len()
}

// Stream implements beep.Streamer.
func (d *MusicDeck) Stream(samples [][2]float64) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mixer.Stream(samples)
}

// Err implements beep.Streamer.
func (d *MusicDeck) Err() error { return nil }

// SampleRate returns the deck's output rate.
func (d *MusicDeck) SampleRate() beep.SampleRate { return d.rate }

// PCM returns an endless reader of the deck's output as interleaved
// little-endian 16-bit stereo, the format ebiten's audio players consume.
func (d *MusicDeck) PCM() io.Reader {
	return &pcmReader{s: d}
}

type pcmReader struct {
	s   beep.Streamer
	buf [][2]float64
}

func (r *pcmReader) Read(p []byte) (int, error) {
	n := len(p) / 4
	if n == 0 {
		return 0, nil
	}
	if cap(r.buf) < n {
		r.buf = make([][2]float64, n)
	}
	buf := r.buf[:n]
	got, ok := r.s.Stream(buf)
	if !ok && got == 0 {
		return 0, io.EOF
	}
	for i := 0; i < got; i++ {
		binary.LittleEndian.PutUint16(p[i*4:], uint16(toInt16(buf[i][0])))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(toInt16(buf[i][1])))
	}
	return got * 4, nil
}

func toInt16(v float64) int16 {
	v = math.Max(-1, math.Min(1, v))
	return int16(v * math.MaxInt16)
}

// withVolume scales s by a linear volume in (0, 1]; 0 means full volume.
func withVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 || vol >= 1 {
		return s
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}

// fader ramps gain linearly and ends the stream once faded to silence,
// closing the source stream when it ends.
type fader struct {
	s          beep.Streamer
	gain, to   float64
	step       float64
	remaining  int
	stopAtZero bool

	closer io.Closer
	ended  bool
}

func newFader(s beep.Streamer, from, to float64, n int) *fader {
	f := &fader{s: s, gain: from}
	f.fadeTo(to, n)
	return f
}

// fadeTo starts a ramp to gain `to` over n samples. Must be called with the
// owning deck locked.
func (f *fader) fadeTo(to float64, n int) {
	f.to = to
	f.stopAtZero = to == 0
	if n <= 0 {
		f.gain = to
		f.remaining = 0
		return
	}
	f.remaining = n
	f.step = (to - f.gain) / float64(n)
}

func (f *fader) Stream(samples [][2]float64) (int, bool) {
	if f.ended {
		return 0, false
	}
	if f.stopAtZero && f.remaining == 0 && f.gain == 0 {
		f.finish()
		return 0, false
	}
	n, ok := f.s.Stream(samples)
	if !ok {
		f.finish()
	}
	for i := 0; i < n; i++ {
		if f.remaining > 0 {
			f.gain += f.step
			f.remaining--
			if f.remaining == 0 {
				f.gain = f.to
			}
		}
		samples[i][0] *= f.gain
		samples[i][1] *= f.gain
	}
	return n, ok
}

func (f *fader) Err() error { return f.s.Err() }

// finish marks the fader ended and closes its source once.
func (f *fader) finish() error {
	if f.ended {
		return nil
	}
	f.ended = true
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

func (f *fader) done() bool { return f.ended }

// looper rewinds s whenever it drains.
type looper struct {
	s beep.StreamSeeker
}

func (l *looper) Stream(samples [][2]float64) (int, bool) {
	filled := 0
	for filled < len(samples) {
		n, ok := l.s.Stream(samples[filled:])
		filled += n
		if !ok || n == 0 {
			if l.s.Len() == 0 {
				return filled, filled > 0
			}
			if err := l.s.Seek(0); err != nil {
				return filled, filled > 0
			}
		}
	}
	return filled, true
}

func (l *looper) Err() error { return l.s.Err() }
