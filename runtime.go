package reverie

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Runtime drains scene actions and carries out their effects: scene state,
// scene events, transitions on the stage element and background music.
// Scenes never execute anything themselves.
type Runtime struct {
	reg    *SceneRegistry
	driver Driver
	stage  Element
	music  *MusicDeck
	log    *slog.Logger

	mu      sync.Mutex
	queue   []Action
	stack   []*Scene
	exited  map[string]bool
	history []string
	stageAt TransformProps
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithDriver sets the animation driver used for transitions.
func WithDriver(d Driver) RuntimeOption {
	return func(r *Runtime) { r.driver = d }
}

// WithStage sets the element that shows the active scene's backdrop.
func WithStage(el Element) RuntimeOption {
	return func(r *Runtime) { r.stage = el }
}

// WithMusicDeck routes background music changes to deck.
func WithMusicDeck(deck *MusicDeck) RuntimeOption {
	return func(r *Runtime) { r.music = deck }
}

// WithRuntimeLogger sets the runtime's logger.
func WithRuntimeLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) { r.log = l }
}

// NewRuntime creates a runtime resolving callees through reg.
func NewRuntime(reg *SceneRegistry, opts ...RuntimeOption) *Runtime {
	r := &Runtime{reg: reg, exited: make(map[string]bool)}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = discardLogger
	}
	return r
}

// Load appends actions to the queue.
func (r *Runtime) Load(actions ...[]Action) {
	r.mu.Lock()
	for _, list := range actions {
		r.queue = append(r.queue, list...)
	}
	n := len(r.queue)
	r.mu.Unlock()
	debugCheckQueueLength(n)
}

// Pending returns the number of queued actions.
func (r *Runtime) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// ActiveScene returns the innermost scene that was initialised and has not
// exited yet.
func (r *Runtime) ActiveScene() *Scene {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stack) == 0 {
		return nil
	}
	return r.stack[len(r.stack)-1]
}

// History returns the content node ids of every executed action, in order.
func (r *Runtime) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.history...)
}

// Run executes queued actions until the queue is empty, ctx is cancelled or
// an action fails.
func (r *Runtime) Run(ctx context.Context) error {
	for {
		ok, err := r.Step(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

// Step executes the next queued action. It reports false when the queue
// was empty.
func (r *Runtime) Step(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	if len(r.queue) == 0 {
		r.mu.Unlock()
		return false, nil
	}
	a := r.queue[0]
	r.queue = r.queue[1:]
	r.mu.Unlock()

	return true, r.exec(ctx, a)
}

func (r *Runtime) exec(ctx context.Context, a Action) error {
	if debugMode.Load() {
		debugCheckAction(a)
	}
	if !a.Kind().Valid() {
		r.log.Warn("[reverie] skipping unknown action", "kind", string(a.Kind()), "scene", a.Callee().Name)
		return nil
	}
	scene, err := r.reg.Lookup(a.Callee())
	if err != nil {
		return fmt.Errorf("run %s: %w", a.Kind(), err)
	}
	r.mu.Lock()
	refused := r.exited[scene.ID()] && a.Kind() != ActionInit && a.Kind() != ActionJumpTo
	r.mu.Unlock()
	if refused {
		r.log.Warn("[reverie] refusing action of exited scene", "kind", string(a.Kind()), "scene", scene.Name())
		return nil
	}

	r.log.Debug("[reverie] action", "kind", string(a.Kind()), "scene", scene.Name(), "id", a.ID())
	r.record(a)

	switch a.Kind() {
	case ActionInit:
		r.enter(scene)
		Emit(scene.Events(), EventSceneLoad, struct{}{})
		Emit(scene.Events(), EventSceneMount, struct{}{})
		st := scene.State()
		r.showBackground(st.Background)
		if r.music != nil && st.BackgroundMusic != nil {
			if err := r.music.Play(st.BackgroundMusic, st.BackgroundMusicFade); err != nil {
				r.log.Warn("[reverie] background music failed", "scene", scene.Name(), "err", err)
			}
		}

	case ActionSetBackground:
		bg, ok := a.Content().Arg(0).(Background)
		if !ok {
			return contentError(a)
		}
		scene.setStateBackground(bg)
		Emit(scene.Events(), EventSceneSetBackground, bg)
		if r.ActiveScene() == scene {
			r.showBackground(bg)
		}

	case ActionSleep:
		sc, ok := a.Content().Arg(0).(SleepContent)
		if !ok {
			return contentError(a)
		}
		if err := sc.Wait(ctx); err != nil {
			return fmt.Errorf("run %s: %w", a.Kind(), err)
		}

	case ActionSetTransition:
		t, ok := a.Content().Arg(0).(Transition)
		if !ok {
			return contentError(a)
		}
		Emit(scene.Events(), EventSceneSetTransition, t)

	case ActionApplyTransition:
		t, ok := a.Content().Arg(0).(Transition)
		if !ok {
			return contentError(a)
		}
		Emit(scene.Events(), EventSceneApplyTransition, t)
		if err := r.playTransition(ctx, t); err != nil {
			return fmt.Errorf("run %s: %w", a.Kind(), err)
		}

	case ActionSetBackgroundMusic:
		mc, ok := a.Content().Arg(0).(MusicChange)
		if !ok {
			return contentError(a)
		}
		scene.setStateBackgroundMusic(mc.Sound)
		Emit(scene.Events(), EventSceneSetBackgroundMusic, mc)
		if r.music != nil {
			if err := r.music.Play(mc.Sound, mc.Fade); err != nil {
				r.log.Warn("[reverie] background music failed", "scene", scene.Name(), "err", err)
			}
		}

	case ActionPreUnmount:
		Emit(scene.Events(), EventScenePreUnmount, struct{}{})

	case ActionExit:
		Emit(scene.Events(), EventSceneUnmount, struct{}{})
		Emit(scene.Events(), EventSceneUnload, struct{}{})
		r.leave(scene)

	case ActionJumpTo:
		next, ok := a.Content().Arg(0).([]Action)
		if !ok {
			return contentError(a)
		}
		if r.onStack(scene) {
			Emit(scene.Events(), EventSceneUnmount, struct{}{})
			Emit(scene.Events(), EventSceneUnload, struct{}{})
		}
		r.leave(scene)
		r.mu.Lock()
		r.queue = append(append([]Action(nil), next...), r.queue...)
		n := len(r.queue)
		r.mu.Unlock()
		debugCheckQueueLength(n)
	}
	return nil
}

func (r *Runtime) record(a Action) {
	r.mu.Lock()
	r.history = append(r.history, a.ID())
	r.mu.Unlock()
}

func (r *Runtime) enter(s *Scene) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.exited, s.ID())
	for i, cur := range r.stack {
		if cur == s {
			r.stack = append(r.stack[:i], r.stack[i+1:]...)
			break
		}
	}
	r.stack = append(r.stack, s)
}

func (r *Runtime) onStack(s *Scene) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.stack, s)
}

func (r *Runtime) leave(s *Scene) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exited[s.ID()] = true
	for i, cur := range r.stack {
		if cur == s {
			r.stack = append(r.stack[:i], r.stack[i+1:]...)
			break
		}
	}
}

func (r *Runtime) showBackground(bg Background) {
	if r.stage == nil || bg.Kind == "" {
		return
	}
	style := Style{"backgroundImage": "", "backgroundColor": ""}
	r.stage.ApplyStyle(style.Merge(BackgroundToCSS(bg)))
}

// playTransition puts the incoming backdrop on the stage, animates it with
// the transition's plan and waits for it. Without a driver or a stage the
// transition is only announced.
func (r *Runtime) playTransition(ctx context.Context, t Transition) error {
	if r.driver == nil || r.stage == nil {
		return nil
	}
	initial, tr := t.Plan()
	r.mu.Lock()
	state, err := r.stageAt.Merge(initial)
	r.mu.Unlock()
	if err != nil {
		return err
	}
	if bg, ok := r.incomingBackground(); ok && bg.Kind != "" {
		style := Style{"backgroundImage": "", "backgroundColor": ""}.Merge(BackgroundToCSS(bg))
		if first, err := tr.StyleFor(r.ActiveScene(), state); err == nil {
			style.Merge(first)
		}
		r.stage.ApplyStyle(style)
	}
	done, err := tr.Animate(WithLogger(ctx, r.log), AnimateParams{
		Driver:  r.driver,
		Element: r.stage,
		Scenes:  r,
		State:   state,
		After: func(final TransformProps) {
			r.mu.Lock()
			r.stageAt = final
			r.mu.Unlock()
		},
	})
	if err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		tr.Stop()
		return ctx.Err()
	}
}

// incomingBackground peeks at the action following a transition: the
// initialising scene's backdrop for a jump, or the new backdrop of a
// setBackground.
func (r *Runtime) incomingBackground() (Background, bool) {
	r.mu.Lock()
	if len(r.queue) == 0 {
		r.mu.Unlock()
		return Background{}, false
	}
	next := r.queue[0]
	r.mu.Unlock()

	switch next.Kind() {
	case ActionInit:
		scene, err := r.reg.Lookup(next.Callee())
		if err != nil {
			return Background{}, false
		}
		return scene.State().Background, true
	case ActionSetBackground:
		bg, ok := next.Content().Arg(0).(Background)
		return bg, ok
	}
	return Background{}, false
}

// Snapshot captures the state of every registered scene that diverged from
// its configuration, plus the execution history.
func (r *Runtime) Snapshot() *SaveData {
	d := &SaveData{Version: SaveVersion, Scenes: make(map[string]*SceneData)}
	r.reg.Each(func(s *Scene) {
		if sd := s.ToData(); sd != nil {
			d.Scenes[s.Name()] = sd
		}
	})
	d.History = r.History()
	return d
}

// Restore applies a snapshot to the registered scenes. Scenes missing from
// the registry are skipped with a warning.
func (r *Runtime) Restore(d *SaveData) {
	if d == nil {
		return
	}
	for name, sd := range d.Scenes {
		s, ok := r.reg.ByName(name)
		if !ok {
			r.log.Warn("[reverie] save references unknown scene", "scene", name)
			continue
		}
		s.FromData(sd)
	}
	r.mu.Lock()
	r.history = append([]string(nil), d.History...)
	r.mu.Unlock()
}

func contentError(a Action) error {
	return fmt.Errorf("run %s (node %s): %w: got %T", a.Kind(), a.ID(), ErrActionContent, a.Content().Arg(0))
}
