package reverie

import (
	"sync"
	"time"
)

// --- Scene events ---

// Scene lifecycle events, fired on each scene's own Dispatcher.
var (
	EventSceneSetTransition      = NewEventType[Transition]("event:scene.setTransition")
	EventSceneRemove             = NewEventType[struct{}]("event:scene.remove")
	EventSceneApplyTransition    = NewEventType[Transition]("event:scene.applyTransition")
	EventSceneLoad               = NewEventType[struct{}]("event:scene.load")
	EventSceneUnload             = NewEventType[struct{}]("event:scene.unload")
	EventSceneMount              = NewEventType[struct{}]("event:scene.mount")
	EventSceneUnmount            = NewEventType[struct{}]("event:scene.unmount")
	EventScenePreUnmount         = NewEventType[struct{}]("event:scene.preUnmount")
	EventSceneImageLoaded        = NewEventType[struct{}]("event:scene.imageLoaded")
	EventSceneSetBackground      = NewEventType[Background]("event:scene.setBackground")
	EventSceneSetBackgroundMusic = NewEventType[MusicChange]("event:scene.setBackgroundMusic")
)

// --- Config and state ---

// SceneConfig holds authoring defaults. It is never mutated after
// construction.
type SceneConfig struct {
	Background          Background
	InvertX             bool
	InvertY             bool
	BackgroundMusic     *Sound
	BackgroundMusicFade time.Duration
}

// SceneState is the live projection of SceneConfig, changed only by the
// runtime replaying actions or by FromData.
type SceneState SceneConfig

func (s SceneState) equal(c SceneConfig) bool {
	return s.Background == c.Background &&
		s.InvertX == c.InvertX &&
		s.InvertY == c.InvertY &&
		s.BackgroundMusic.Equal(c.BackgroundMusic) &&
		s.BackgroundMusicFade == c.BackgroundMusicFade
}

// JumpConfig tunes JumpTo.
type JumpConfig struct {
	Transition Transition // nil jumps without a visual transition
}

// --- Scene ---

// Scene is the unit of narrative place. Builder methods never take effect
// immediately: each appends actions to a pending buffer that ToActions
// drains, so story code can be evaluated any number of times.
type Scene struct {
	id     string
	name   string
	config SceneConfig
	ids    IDGenerator
	reg    *SceneRegistry
	src    *SrcManager
	events Dispatcher

	mu      sync.Mutex
	state   SceneState
	actions []Action
	exited  bool
}

// SceneOption configures a Scene.
type SceneOption func(*Scene)

// WithIDs sets the id generator for the scene and its actions.
func WithIDs(ids IDGenerator) SceneOption {
	return func(s *Scene) { s.ids = ids }
}

// WithRegistry registers the scene in r, letting jumps resolve the owning
// scene of raw action lists.
func WithRegistry(r *SceneRegistry) SceneOption {
	return func(s *Scene) { s.reg = r }
}

// WithSrcManager replaces the scene's resource tracker.
func WithSrcManager(m *SrcManager) SceneOption {
	return func(s *Scene) { s.src = m }
}

// NewScene creates a scene. Resources referenced by cfg are registered with
// the scene's SrcManager.
func NewScene(name string, cfg SceneConfig, opts ...SceneOption) *Scene {
	s := &Scene{name: name, config: cfg}
	for _, opt := range opts {
		opt(s)
	}
	s.ids = idsOrDefault(s.ids)
	if s.src == nil {
		s.src = NewSrcManager()
	}
	s.id = s.ids.NextID()
	s.state = SceneState(cfg)
	if u := BackgroundToSrc(cfg.Background); u != "" {
		s.src.RegisterImage(NewImage(name, u))
	}
	if cfg.BackgroundMusic != nil {
		s.src.RegisterSound(cfg.BackgroundMusic)
	}
	if s.reg != nil {
		s.reg.Add(s)
	}
	return s
}

// ID returns the process-unique scene id.
func (s *Scene) ID() string { return s.id }

// Name returns the author-given name.
func (s *Scene) Name() string { return s.name }

// Ref returns a non-owning reference to the scene.
func (s *Scene) Ref() SceneRef { return SceneRef{ID: s.id, Name: s.name} }

// Config returns the authoring defaults.
func (s *Scene) Config() SceneConfig { return s.config }

// State returns a copy of the live state.
func (s *Scene) State() SceneState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BackgroundMusic returns the live background music, or nil.
func (s *Scene) BackgroundMusic() *Sound {
	return s.State().BackgroundMusic
}

// Events returns the scene's dispatcher.
func (s *Scene) Events() *Dispatcher { return &s.events }

// SrcManager returns the scene's resource tracker.
func (s *Scene) SrcManager() *SrcManager { return s.src }

// Exited reports whether the scene queued its exit and was not activated
// again since.
func (s *Scene) Exited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exited
}

// --- Builders ---

// Activate queues scene:init and re-arms an exited scene.
func (s *Scene) Activate() *Scene {
	s.mu.Lock()
	s.exited = false
	s.mu.Unlock()
	return s.push(ActionInit)
}

// Deactivate queues scene:exit.
func (s *Scene) Deactivate() *Scene {
	s.mustLive("Deactivate")
	return s.exit()
}

// SetBackground queues a backdrop change.
func (s *Scene) SetBackground(bg Background) *Scene {
	s.mustLive("SetBackground")
	if u := BackgroundToSrc(bg); u != "" {
		s.src.RegisterImage(NewImage(s.name, u))
	}
	return s.push(ActionSetBackground, bg)
}

// Sleep queues a pause of d.
func (s *Scene) Sleep(d time.Duration) *Scene {
	s.mustLive("Sleep")
	return s.push(ActionSleep, SleepContent{Duration: d})
}

// SleepUntil queues a pause until signal is closed.
func (s *Scene) SleepUntil(signal <-chan struct{}) *Scene {
	s.mustLive("SleepUntil")
	return s.push(ActionSleep, SleepContent{Signal: signal})
}

// SleepOn queues a pause until a resolves.
func (s *Scene) SleepOn(a Awaitable) *Scene {
	s.mustLive("SleepOn")
	return s.push(ActionSleep, SleepContent{Awaitable: a})
}

// SetBackgroundMusic queues a music change. With a non-zero fade the
// previous track fades out and the new one fades in over fade.
func (s *Scene) SetBackgroundMusic(sound *Sound, fade time.Duration) *Scene {
	s.mustLive("SetBackgroundMusic")
	if sound != nil {
		s.src.RegisterSound(sound)
	}
	return s.push(ActionSetBackgroundMusic, MusicChange{Sound: sound, Fade: fade})
}

// ApplyTransition queues scene:setTransition followed by
// scene:applyTransition.
func (s *Scene) ApplyTransition(t Transition) *Scene {
	s.mustLive("ApplyTransition")
	return s.setTransition(t).applyTransition(t)
}

// TransitionSceneBackground transitions to target's backdrop: the optional
// transition pair, then target's activated script inline, then this scene's
// exit.
func (s *Scene) TransitionSceneBackground(target *Scene, t Transition) *Scene {
	s.mustLive("TransitionSceneBackground")
	s.checkTarget("TransitionSceneBackground", target)
	return s.transitionToScene(target, t)
}

// JumpTo ends this scene and splices target's script into the stream:
// preUnmount, the optional transition pair, target's init and pending
// actions, then this scene's exit. No builder call on this scene has any
// effect afterwards until it is activated again.
func (s *Scene) JumpTo(target *Scene, cfg JumpConfig) *Scene {
	s.mustLive("JumpTo")
	s.checkTarget("JumpTo", target)
	s.push(ActionPreUnmount)
	s.registerFuture(target)
	return s.transitionToScene(target, cfg.Transition)
}

// JumpToActions ends this scene and continues with a prepared action list.
// When the first action's owning scene resolves through the registry it is
// activated inside the usual preUnmount/transition bracket; otherwise the
// jump is a bare splice. The list is appended flattened as one
// scene:jumpTo action.
func (s *Scene) JumpToActions(actions []Action, cfg JumpConfig) *Scene {
	s.mustLive("JumpToActions")
	s.push(ActionPreUnmount)
	flat := FlattenActions(actions)
	if len(flat) > 0 {
		if target, err := s.reg.Lookup(flat[0].Callee()); err == nil && target != s {
			s.registerFuture(target)
			s.transitionToScene(target, cfg.Transition)
		}
	}
	s.push(ActionJumpTo, flat)
	s.mu.Lock()
	s.exited = true
	s.mu.Unlock()
	return s
}

// ToActions drains the pending buffer. Calling it again without new
// builder calls returns an empty list.
func (s *Scene) ToActions() []Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.actions
	if out == nil {
		out = []Action{}
	}
	s.actions = nil
	return out
}

// --- Internals ---

func (s *Scene) push(kind ActionKind, content ...any) *Scene {
	a := NewAction(s.Ref(), kind, NewContentNode(s.ids.NextID(), content...))
	s.mu.Lock()
	s.actions = append(s.actions, a)
	s.mu.Unlock()
	return s
}

func (s *Scene) pushAll(actions []Action) {
	s.mu.Lock()
	s.actions = append(s.actions, actions...)
	s.mu.Unlock()
}

func (s *Scene) exit() *Scene {
	s.push(ActionExit)
	s.mu.Lock()
	s.exited = true
	s.mu.Unlock()
	return s
}

func (s *Scene) setTransition(t Transition) *Scene {
	return s.push(ActionSetTransition, t)
}

func (s *Scene) applyTransition(t Transition) *Scene {
	return s.push(ActionApplyTransition, t)
}

// transitionToScene brackets target's activated script with the optional
// transition pair and this scene's exit. Target's init comes before the
// actions that were already pending on it.
func (s *Scene) transitionToScene(target *Scene, t Transition) *Scene {
	if t != nil {
		s.setTransition(t).applyTransition(t)
	}
	pending := target.ToActions()
	script := append(target.Activate().ToActions(), pending...)
	s.pushAll(script)
	return s.exit()
}

func (s *Scene) registerFuture(target *Scene) {
	s.src.RegisterFuture(target.src)
}

// mustLive panics with a *SceneError once the scene has exited.
func (s *Scene) mustLive(op string) {
	if s.Exited() {
		panic(&SceneError{Scene: s.name, Op: op, Err: ErrSceneExited})
	}
}

func (s *Scene) checkTarget(op string, target *Scene) {
	if target == s {
		panic(&SceneError{Scene: s.name, Op: op, Err: ErrSelfJump})
	}
}

// --- Runtime-side state mutation ---

func (s *Scene) setStateBackground(bg Background) {
	s.mu.Lock()
	s.state.Background = bg
	s.mu.Unlock()
}

func (s *Scene) setStateBackgroundMusic(sound *Sound) {
	s.mu.Lock()
	s.state.BackgroundMusic = sound
	s.mu.Unlock()
}
