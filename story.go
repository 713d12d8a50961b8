package reverie

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// storyStep is a single builder call in a story script.
type storyStep struct {
	Action     string  `yaml:"action"`
	Background string  `yaml:"background,omitempty"`
	Millis     int     `yaml:"millis,omitempty"`
	Src        string  `yaml:"src,omitempty"`
	Volume     float64 `yaml:"volume,omitempty"`
	Loop       bool    `yaml:"loop,omitempty"`
	Scene      string  `yaml:"scene,omitempty"`
	Transition string  `yaml:"transition,omitempty"`
	Direction  string  `yaml:"direction,omitempty"`
	Offset     float64 `yaml:"offset,omitempty"`
	Ease       string  `yaml:"ease,omitempty"`
}

type storyScene struct {
	Name       string      `yaml:"name"`
	Background string      `yaml:"background,omitempty"`
	Music      string      `yaml:"music,omitempty"`
	InvertX    bool        `yaml:"invertX,omitempty"`
	InvertY    bool        `yaml:"invertY,omitempty"`
	Steps      []storyStep `yaml:"steps"`
}

type storyScript struct {
	Start  string       `yaml:"start"`
	Scenes []storyScene `yaml:"scenes"`
}

// Story is a set of scenes built from a YAML script.
type Story struct {
	script storyScript
	reg    *SceneRegistry
	scenes map[string]*Scene
}

var errJumpCycle = errors.New("jump cycle")

// LoadStory parses a YAML story script and creates its scenes in reg.
// Scene options, such as WithSrcManager, apply to every scene.
func LoadStory(data []byte, reg *SceneRegistry, opts ...SceneOption) (*Story, error) {
	var script storyScript
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse story: %w", err)
	}
	if len(script.Scenes) == 0 {
		return nil, fmt.Errorf("parse story: no scenes")
	}
	if script.Start == "" {
		script.Start = script.Scenes[0].Name
	}

	st := &Story{script: script, reg: reg, scenes: make(map[string]*Scene)}
	for _, sc := range script.Scenes {
		if _, dup := st.scenes[sc.Name]; dup {
			return nil, fmt.Errorf("parse story: duplicate scene %q", sc.Name)
		}
		cfg := SceneConfig{
			Background: parseBackground(sc.Background),
			InvertX:    sc.InvertX,
			InvertY:    sc.InvertY,
		}
		if sc.Music != "" {
			cfg.BackgroundMusic = NewSound(sc.Music)
		}
		st.scenes[sc.Name] = NewScene(sc.Name, cfg, append([]SceneOption{WithRegistry(reg)}, opts...)...)
	}
	if _, ok := st.scenes[script.Start]; !ok {
		return nil, fmt.Errorf("parse story: start scene %q: %w", script.Start, ErrUnknownScene)
	}
	return st, nil
}

// LoadStoryFile reads a story script from disk.
func LoadStoryFile(path string, reg *SceneRegistry, opts ...SceneOption) (*Story, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load story: %w", err)
	}
	return LoadStory(data, reg, opts...)
}

// Scene returns the scene created for name.
func (st *Story) Scene(name string) (*Scene, bool) {
	s, ok := st.scenes[name]
	return s, ok
}

// Actions builds the action list of the whole story, starting with the
// start scene's init. Jump targets are built before the scenes that jump to
// them so their scripts are spliced in; a cycle of jumps is an error. A
// scene reached by several jumps plays its steps on the first one only.
func (st *Story) Actions() ([]Action, error) {
	built := make(map[string]bool)
	visiting := make(map[string]bool)
	if err := st.build(st.script.Start, built, visiting); err != nil {
		return nil, err
	}
	start := st.scenes[st.script.Start]
	pending := start.ToActions()
	return append(start.Activate().ToActions(), pending...), nil
}

func (st *Story) build(name string, built, visiting map[string]bool) error {
	if built[name] {
		return nil
	}
	if visiting[name] {
		return fmt.Errorf("build story: scene %q: %w", name, errJumpCycle)
	}
	visiting[name] = true
	defer delete(visiting, name)

	def := st.def(name)
	s := st.scenes[name]
	for i, step := range def.Steps {
		if step.Action == "jump" {
			if _, ok := st.scenes[step.Scene]; !ok {
				return fmt.Errorf("build story: scene %q step %d: jump to %q: %w", name, i, step.Scene, ErrUnknownScene)
			}
			if err := st.build(step.Scene, built, visiting); err != nil {
				return err
			}
		}
		if err := st.apply(s, step); err != nil {
			return fmt.Errorf("build story: scene %q step %d: %w", name, i, err)
		}
	}
	built[name] = true
	return nil
}

func (st *Story) def(name string) storyScene {
	for _, sc := range st.script.Scenes {
		if sc.Name == name {
			return sc
		}
	}
	return storyScene{}
}

// apply turns one step into builder calls on s.
func (st *Story) apply(s *Scene, step storyStep) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if se, ok := r.(*SceneError); ok {
				err = se
				return
			}
			panic(r)
		}
	}()

	switch step.Action {
	case "background":
		s.SetBackground(parseBackground(step.Background))
	case "sleep":
		s.Sleep(time.Duration(step.Millis) * time.Millisecond)
	case "music":
		var sound *Sound
		if step.Src != "" {
			sound = NewSound(step.Src)
			sound.Loop = step.Loop
			if step.Volume > 0 {
				sound.Volume = step.Volume
			}
		}
		s.SetBackgroundMusic(sound, time.Duration(step.Millis)*time.Millisecond)
	case "transition":
		t, err := step.transition()
		if err != nil {
			return err
		}
		if t != nil {
			s.ApplyTransition(t)
		}
	case "jump":
		t, err := step.transition()
		if err != nil {
			return err
		}
		s.JumpTo(st.scenes[step.Scene], JumpConfig{Transition: t})
	case "exit":
		s.Deactivate()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, step.Action)
	}
	return nil
}

func (step storyStep) transition() (Transition, error) {
	switch step.Transition {
	case "":
		return nil, nil
	case "dissolve":
		return Dissolve{Duration: step.Millis, Ease: step.Ease}, nil
	case "fadeIn":
		return FadeIn{
			Direction: FadeDirection(step.Direction),
			Offset:    step.Offset,
			Duration:  step.Millis,
			Ease:      step.Ease,
		}, nil
	}
	return nil, fmt.Errorf("unknown transition %q", step.Transition)
}

// parseBackground reads a color (hex or name) or else an image URL.
func parseBackground(v string) Background {
	if v == "" {
		return Background{}
	}
	if c, err := ParseColor(v); err == nil {
		return ColorBackground(c)
	}
	return ImageBackground(v)
}
