package reverie

// Sound is an audio resource reference. The engine never decodes it; hosts
// resolve Src through their own loader.
type Sound struct {
	Src    string
	Volume float64 // 0-1; 0 is treated as full volume
	Loop   bool
}

// SoundData is the serialized form of a Sound.
type SoundData struct {
	Src    string  `yaml:"src"`
	Volume float64 `yaml:"volume,omitempty"`
	Loop   bool    `yaml:"loop,omitempty"`
}

// NewSound creates a sound for src.
func NewSound(src string) *Sound {
	return &Sound{Src: src, Volume: 1}
}

// ToData serializes the sound. A nil sound serializes to nil.
func (s *Sound) ToData() *SoundData {
	if s == nil {
		return nil
	}
	return &SoundData{Src: s.Src, Volume: s.Volume, Loop: s.Loop}
}

// SoundFromData rebuilds a live sound from its serialized form.
func SoundFromData(d *SoundData) *Sound {
	if d == nil {
		return nil
	}
	return &Sound{Src: d.Src, Volume: d.Volume, Loop: d.Loop}
}

// Equal reports whether two sounds reference the same resource with the
// same playback settings.
func (s *Sound) Equal(o *Sound) bool {
	if s == nil || o == nil {
		return s == o
	}
	return *s == *o
}

// Image is an image resource reference.
type Image struct {
	Name string
	Src  string
}

// NewImage creates an image for src.
func NewImage(name, src string) *Image {
	return &Image{Name: name, Src: src}
}
