package reverie

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = beep.SampleRate(1000)

// constStream yields n samples of v on both channels.
type constStream struct {
	n, pos int
	v      float64
}

func (s *constStream) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= s.n {
		return 0, false
	}
	k := min(len(samples), s.n-s.pos)
	for i := 0; i < k; i++ {
		samples[i] = [2]float64{s.v, s.v}
	}
	s.pos += k
	return k, true
}

func (s *constStream) Err() error      { return nil }
func (s *constStream) Len() int        { return s.n }
func (s *constStream) Position() int   { return s.pos }
func (s *constStream) Seek(p int) error { s.pos = p; return nil }

func constLoader(n int) StreamLoader {
	return func(*Sound) (beep.StreamSeeker, beep.Format, error) {
		return &constStream{n: n, v: 1}, beep.Format{SampleRate: testRate, NumChannels: 2, Precision: 2}, nil
	}
}

// closingStream counts Close calls.
type closingStream struct {
	constStream
	closed int
}

func (s *closingStream) Close() error { s.closed++; return nil }

func stream(d *MusicDeck, n int) [][2]float64 {
	buf := make([][2]float64, n)
	d.Stream(buf)
	return buf
}

func TestMusicDeck_SilentWhenIdle(t *testing.T) {
	d := NewMusicDeck(testRate, constLoader(100))
	for _, s := range stream(d, 8) {
		assert.Equal(t, [2]float64{}, s)
	}
	assert.Nil(t, d.Current())
	assert.NoError(t, d.Err())
}

func TestMusicDeck_CutAndStop(t *testing.T) {
	d := NewMusicDeck(testRate, constLoader(1000))
	sound := NewSound("a.wav")
	require.NoError(t, d.Play(sound, 0))
	assert.Same(t, sound, d.Current())

	for _, s := range stream(d, 4) {
		assert.Equal(t, [2]float64{1, 1}, s)
	}

	require.NoError(t, d.Play(nil, 0))
	for _, s := range stream(d, 4) {
		assert.Equal(t, [2]float64{}, s)
	}
	assert.Equal(t, 0, d.Playing())
}

func TestMusicDeck_FadeIn(t *testing.T) {
	d := NewMusicDeck(testRate, constLoader(1000))
	require.NoError(t, d.Play(NewSound("a.wav"), 10*time.Millisecond))

	buf := stream(d, 12)
	for i := 0; i < 10; i++ {
		assert.InDelta(t, float64(i+1)/10, buf[i][0], 1e-9, "sample %d", i)
	}
	assert.InDelta(t, 1.0, buf[11][1], 1e-9)
}

func TestMusicDeck_CrossFade(t *testing.T) {
	d := NewMusicDeck(testRate, constLoader(1000))
	require.NoError(t, d.Play(NewSound("a.wav"), 0))
	require.NoError(t, d.Play(NewSound("b.wav"), 10*time.Millisecond))
	assert.Equal(t, 2, d.Playing())

	buf := stream(d, 10)
	for i := range buf {
		assert.InDelta(t, 1.0, buf[i][0], 1e-9, "sum of gains stays constant")
	}
	stream(d, 1)
	assert.Equal(t, 1, d.Playing())
}

func TestMusicDeck_ClosesDroppedStreams(t *testing.T) {
	var opened []*closingStream
	d := NewMusicDeck(testRate, func(*Sound) (beep.StreamSeeker, beep.Format, error) {
		s := &closingStream{constStream: constStream{n: 1000, v: 1}}
		opened = append(opened, s)
		return s, beep.Format{SampleRate: testRate, NumChannels: 2, Precision: 2}, nil
	})

	require.NoError(t, d.Play(NewSound("a.wav"), 0))
	require.NoError(t, d.Play(NewSound("b.wav"), 5*time.Millisecond))
	stream(d, 5)
	assert.Equal(t, 0, opened[0].closed, "still fading out")
	stream(d, 1)
	assert.Equal(t, 1, opened[0].closed, "closed once faded to silence")
	stream(d, 1)
	assert.Equal(t, 1, opened[0].closed)

	require.NoError(t, d.Play(NewSound("c.wav"), 0))
	require.NoError(t, d.Close())
	assert.Equal(t, 1, opened[1].closed)
	assert.Equal(t, 1, opened[2].closed)
	assert.Equal(t, 0, d.Playing())
	assert.Nil(t, d.Current())
}

func TestMusicDeck_VolumeAndLoop(t *testing.T) {
	d := NewMusicDeck(testRate, constLoader(3))
	sound := &Sound{Src: "a.wav", Volume: 0.5, Loop: true}
	require.NoError(t, d.Play(sound, 0))

	for i, s := range stream(d, 7) {
		assert.InDelta(t, 0.5, s[0], 1e-9, "sample %d", i)
	}
}

func TestMusicDeck_LoaderError(t *testing.T) {
	boom := errors.New("boom")
	d := NewMusicDeck(testRate, func(*Sound) (beep.StreamSeeker, beep.Format, error) {
		return nil, beep.Format{}, boom
	})
	assert.ErrorIs(t, d.Play(NewSound("x.wav"), 0), boom)
	assert.Nil(t, d.Current())
}

func TestMusicDeck_PCM(t *testing.T) {
	d := NewMusicDeck(testRate, constLoader(100))
	require.NoError(t, d.Play(NewSound("a.wav"), 0))

	p := make([]byte, 9)
	n, err := d.PCM().Read(p)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	for i := 0; i < 8; i += 2 {
		assert.Equal(t, uint16(32767), binary.LittleEndian.Uint16(p[i:]))
	}
}

func TestWAVLoader_OpenError(t *testing.T) {
	boom := errors.New("missing")
	load := WAVLoader(func(string) (io.ReadCloser, error) { return nil, boom })
	_, _, err := load(NewSound("a.wav"))
	assert.ErrorIs(t, err, boom)

	load = WAVLoader(func(string) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader([]byte("not a wav file"))), nil
	})
	_, _, err = load(NewSound("a.wav"))
	assert.Error(t, err)
}
