package reverie

import (
	"sync"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// TweenDriver is a frame-driven Driver backed by gween. Numeric style keys
// present on both the element and the target are interpolated; every other
// key snaps to its target when the animation completes. Call Update(dt)
// once per frame.
//
// There is no global animation manager: each host owns its driver.
type TweenDriver struct {
	mu     sync.Mutex
	active []*tweenAnimation
}

// NewTweenDriver creates an idle driver.
func NewTweenDriver() *TweenDriver {
	return &TweenDriver{}
}

// tweenAnimation animates any number of numeric style keys on one element.
type tweenAnimation struct {
	el     Element
	keys   []string
	tweens []*gween.Tween
	target Style

	once sync.Once
	done chan struct{}
}

// Animate starts tweening el towards target. A zero duration applies the
// target immediately and returns an already finished animation.
func (d *TweenDriver) Animate(el Element, target Style, opts DriverOptions) Animation {
	a := &tweenAnimation{el: el, target: target.Clone(), done: make(chan struct{})}
	if opts.Duration <= 0 {
		a.finish(true)
		return a
	}

	fn := EaseFunc(opts.Ease)
	current := el.Style()
	for key, to := range target {
		toN, ok := styleNumber(to)
		if !ok {
			continue
		}
		fromN, ok := current.Number(key)
		if !ok {
			continue
		}
		a.keys = append(a.keys, key)
		a.tweens = append(a.tweens, gween.New(float32(fromN), float32(toN), float32(opts.Duration), fn))
	}

	d.mu.Lock()
	d.active = append(d.active, a)
	d.mu.Unlock()
	return a
}

// Update advances every running animation by dt seconds, writes the
// interpolated values to the elements, and completes the finished ones.
func (d *TweenDriver) Update(dt float32) {
	d.mu.Lock()
	running := d.active[:0]
	var finished []*tweenAnimation
	for _, a := range d.active {
		if a.stopped() {
			continue
		}
		frame := make(Style, len(a.keys))
		allDone := true
		for i, tw := range a.tweens {
			val, fin := tw.Update(dt)
			frame[a.keys[i]] = float64(val)
			if !fin {
				allDone = false
			}
		}
		if len(frame) > 0 {
			a.el.ApplyStyle(frame)
		}
		if allDone {
			finished = append(finished, a)
		} else {
			running = append(running, a)
		}
	}
	for i := len(running); i < len(d.active); i++ {
		d.active[i] = nil
	}
	d.active = running
	d.mu.Unlock()

	for _, a := range finished {
		a.finish(true)
	}
}

// Active returns the number of running animations.
func (d *TweenDriver) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.active)
}

func (a *tweenAnimation) Done() <-chan struct{} { return a.done }

// Stop leaves the element at its current interpolated values.
func (a *tweenAnimation) Stop() { a.finish(false) }

func (a *tweenAnimation) finish(apply bool) {
	a.once.Do(func() {
		if apply {
			a.el.ApplyStyle(a.target)
		}
		close(a.done)
	})
}

func (a *tweenAnimation) stopped() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}

// easings maps host easing names onto gween functions.
var easings = map[string]ease.TweenFunc{
	"linear":     ease.Linear,
	"easeIn":     ease.InQuad,
	"easeOut":    ease.OutQuad,
	"easeInOut":  ease.InOutQuad,
	"circIn":     ease.InCirc,
	"circOut":    ease.OutCirc,
	"circInOut":  ease.InOutCirc,
	"backIn":     ease.InBack,
	"backOut":    ease.OutBack,
	"backInOut":  ease.InOutBack,
	"anticipate": ease.InBack,
	"bounceOut":  ease.OutBounce,
	"sineInOut":  ease.InOutSine,
	"cubicInOut": ease.InOutCubic,
}

// EaseFunc resolves an easing name, falling back to linear.
func EaseFunc(name string) ease.TweenFunc {
	if fn, ok := easings[name]; ok {
		return fn
	}
	return ease.Linear
}

// --- StyleElement ---

// StyleElement is an in-memory Element holding the last applied value of
// every style key. Hosts read it each frame to paint.
type StyleElement struct {
	Name string

	mu    sync.RWMutex
	style Style
}

// NewStyleElement creates an empty element.
func NewStyleElement(name string) *StyleElement {
	return &StyleElement{Name: name, style: Style{}}
}

// ApplyStyle merges s into the element's style.
func (e *StyleElement) ApplyStyle(s Style) {
	e.mu.Lock()
	e.style.Merge(s)
	e.mu.Unlock()
}

// Style returns a copy of the current style.
func (e *StyleElement) Style() Style {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.style.Clone()
}
