package reverie

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SceneData is the persisted form of a scene's live state.
type SceneData struct {
	State SceneStateData `yaml:"state"`
}

// SceneStateData lists state fields. Absent (nil) fields leave the live
// state untouched on load. A BackgroundMusic with an empty Src records that
// no music is playing.
type SceneStateData struct {
	Background      *Background `yaml:"background,omitempty"`
	InvertX         *bool       `yaml:"invertX,omitempty"`
	InvertY         *bool       `yaml:"invertY,omitempty"`
	BackgroundMusic *SoundData  `yaml:"backgroundMusic,omitempty"`
	FadeMillis      *int64      `yaml:"backgroundMusicFade,omitempty"`
}

// ToData serializes the live state, or returns nil when it still equals the
// authored config.
func (s *Scene) ToData() *SceneData {
	st := s.State()
	if st.equal(s.config) {
		return nil
	}
	bg := st.Background
	invertX, invertY := st.InvertX, st.InvertY
	fade := st.BackgroundMusicFade.Milliseconds()
	music := st.BackgroundMusic.ToData()
	if music == nil {
		music = &SoundData{}
	}
	return &SceneData{State: SceneStateData{
		Background:      &bg,
		InvertX:         &invertX,
		InvertY:         &invertY,
		BackgroundMusic: music,
		FadeMillis:      &fade,
	}}
}

// FromData merges stored state over the live state and rebuilds embedded
// media. A nil payload is a no-op.
func (s *Scene) FromData(d *SceneData) *Scene {
	if d == nil {
		return s
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := d.State
	if st.Background != nil {
		s.state.Background = *st.Background
	}
	if st.InvertX != nil {
		s.state.InvertX = *st.InvertX
	}
	if st.InvertY != nil {
		s.state.InvertY = *st.InvertY
	}
	if st.BackgroundMusic != nil {
		if st.BackgroundMusic.Src == "" {
			s.state.BackgroundMusic = nil
		} else {
			s.state.BackgroundMusic = SoundFromData(st.BackgroundMusic)
		}
	}
	if st.FadeMillis != nil {
		s.state.BackgroundMusicFade = time.Duration(*st.FadeMillis) * time.Millisecond
	}
	return s
}

// --- Save files ---

// SaveVersion is written into every save file.
const SaveVersion = 1

// SaveData is a full game save: the state of every non-pristine scene
// keyed by name, and the ids of executed content nodes in order.
type SaveData struct {
	Version int                   `yaml:"version"`
	Scenes  map[string]*SceneData `yaml:"scenes,omitempty"`
	History []string              `yaml:"history,omitempty"`
}

// WriteSave encodes d as YAML.
func WriteSave(w io.Writer, d *SaveData) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("write save: %w", err)
	}
	return enc.Close()
}

// ReadSave decodes a YAML save.
func ReadSave(r io.Reader) (*SaveData, error) {
	var d SaveData
	if err := yaml.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("read save: %w", err)
	}
	if d.Version > SaveVersion {
		return nil, fmt.Errorf("read save: version %d is newer than %d", d.Version, SaveVersion)
	}
	return &d, nil
}

// WriteSaveFile writes d to path.
func WriteSaveFile(path string, d *SaveData) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write save: %w", err)
	}
	if err := WriteSave(f, d); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadSaveFile reads a save from path.
func ReadSaveFile(path string) (*SaveData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read save: %w", err)
	}
	defer f.Close()
	return ReadSave(f)
}
