package reverie

import (
	"errors"
	"sync"
	"testing"
)

// --- Shared test fixtures ---

// newTestScene creates a scene with deterministic ids in reg.
func newTestScene(reg *SceneRegistry, name string, cfg SceneConfig) *Scene {
	return NewScene(name, cfg, WithRegistry(reg), WithIDs(NewCounterIDs(name+"-")))
}

func kinds(actions []Action) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.Callee().Name + ":" + string(a.Kind())
	}
	return out
}

// scenePanic runs fn and returns the error it panicked with.
func scenePanic(t *testing.T, fn func()) (err error) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic")
		}
		e, ok := r.(error)
		if !ok {
			t.Fatalf("panic value %T is not an error", r)
		}
		err = e
	}()
	fn()
	return nil
}

func isSceneError(err, target error) bool {
	var se *SceneError
	return errors.As(err, &se) && errors.Is(err, target)
}

// fixedScenes is a SceneSource returning one scene.
type fixedScenes struct{ s *Scene }

func (f fixedScenes) ActiveScene() *Scene { return f.s }

// instantDriver finishes every animation immediately and records targets.
type instantDriver struct {
	mu      sync.Mutex
	targets []Style
	opts    []DriverOptions
}

func (d *instantDriver) Animate(el Element, target Style, opts DriverOptions) Animation {
	d.mu.Lock()
	d.targets = append(d.targets, target.Clone())
	d.opts = append(d.opts, opts)
	d.mu.Unlock()
	a := &manualAnimation{done: make(chan struct{})}
	a.finish()
	return a
}

func (d *instantDriver) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.targets)
}

// stuckDriver never finishes on its own.
type stuckDriver struct {
	mu      sync.Mutex
	started []*manualAnimation
}

func (d *stuckDriver) Animate(el Element, target Style, opts DriverOptions) Animation {
	a := &manualAnimation{done: make(chan struct{})}
	d.mu.Lock()
	d.started = append(d.started, a)
	d.mu.Unlock()
	return a
}

type manualAnimation struct {
	once    sync.Once
	done    chan struct{}
	stopped bool
}

func (a *manualAnimation) Done() <-chan struct{} { return a.done }
func (a *manualAnimation) Stop() {
	a.stopped = true
	a.finish()
}
func (a *manualAnimation) finish() { a.once.Do(func() { close(a.done) }) }
