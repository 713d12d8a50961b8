package reverie

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// --- Properties ---

// TransformProps is a partial set of animatable properties. Nil fields are
// absent; merging only overrides fields that are present. Extra carries
// properties without a built-in handler, which contribute nothing to the
// derived style unless a transformer is installed for them via Overwrite.
type TransformProps struct {
	Position          Position
	Opacity           *float64
	Scale             *float64
	Rotation          *float64 // degrees
	Display           *string
	Src               *string
	BackgroundColor   *Background
	BackgroundOpacity *float64
	Extra             map[string]any
}

// Property keys, in the order handlers run.
const (
	PropPosition          = "position"
	PropOpacity           = "opacity"
	PropScale             = "scale"
	PropRotation          = "rotation"
	PropDisplay           = "display"
	PropSrc               = "src"
	PropBackgroundColor   = "backgroundColor"
	PropBackgroundOpacity = "backgroundOpacity"

	// PropTransform is the synthetic key whose transformer receives the
	// whole TransformProps value.
	PropTransform = "transform"
)

// values lists present properties as key/value pairs in handler order.
func (p TransformProps) values() []propValue {
	var out []propValue
	if p.Position != nil {
		out = append(out, propValue{PropPosition, p.Position})
	}
	if p.Opacity != nil {
		out = append(out, propValue{PropOpacity, *p.Opacity})
	}
	if p.Scale != nil {
		out = append(out, propValue{PropScale, *p.Scale})
	}
	if p.Rotation != nil {
		out = append(out, propValue{PropRotation, *p.Rotation})
	}
	if p.Display != nil {
		out = append(out, propValue{PropDisplay, *p.Display})
	}
	if p.Src != nil {
		out = append(out, propValue{PropSrc, *p.Src})
	}
	if p.BackgroundColor != nil {
		out = append(out, propValue{PropBackgroundColor, *p.BackgroundColor})
	}
	if p.BackgroundOpacity != nil {
		out = append(out, propValue{PropBackgroundOpacity, *p.BackgroundOpacity})
	}
	for _, k := range slices.Sorted(maps.Keys(p.Extra)) {
		out = append(out, propValue{k, p.Extra[k]})
	}
	return out
}

type propValue struct {
	key   string
	value any
}

// Merge returns p overridden by every present field of other. Positions on
// both sides are normalized to Coord2D first.
func (p TransformProps) Merge(other TransformProps) (TransformProps, error) {
	out, err := p.normalized()
	if err != nil {
		return TransformProps{}, err
	}
	o, err := other.normalized()
	if err != nil {
		return TransformProps{}, err
	}
	if o.Position != nil {
		out.Position = mergeCoord(out.Position, o.Position.(Coord2D))
	}
	if o.Opacity != nil {
		out.Opacity = o.Opacity
	}
	if o.Scale != nil {
		out.Scale = o.Scale
	}
	if o.Rotation != nil {
		out.Rotation = o.Rotation
	}
	if o.Display != nil {
		out.Display = o.Display
	}
	if o.Src != nil {
		out.Src = o.Src
	}
	if o.BackgroundColor != nil {
		out.BackgroundColor = o.BackgroundColor
	}
	if o.BackgroundOpacity != nil {
		out.BackgroundOpacity = o.BackgroundOpacity
	}
	if len(o.Extra) > 0 {
		if out.Extra == nil {
			out.Extra = make(map[string]any, len(o.Extra))
		}
		maps.Copy(out.Extra, o.Extra)
	}
	return out, nil
}

// mergeCoord overlays set axes of next onto prev.
func mergeCoord(prev Position, next Coord2D) Position {
	base, ok := prev.(Coord2D)
	if !ok {
		return next
	}
	if next.X.Unit != CoordUnset {
		base.X = next.X
	}
	if next.Y.Unit != CoordUnset {
		base.Y = next.Y
	}
	base.XOffset = next.XOffset
	base.YOffset = next.YOffset
	return base
}

func (p TransformProps) normalized() (TransformProps, error) {
	out := p
	out.Extra = maps.Clone(p.Extra)
	if p.Position != nil {
		c, err := ToCoord2D(p.Position)
		if err != nil {
			return TransformProps{}, err
		}
		out.Position = c
	}
	return out, nil
}

// --- Options ---

// StepOptions time a single sequence step.
type StepOptions struct {
	Duration int    // whole milliseconds; 0 sets properties instantly
	Ease     string // easing name understood by the Driver
	Async    bool   // fire the step and continue without waiting for it
}

// SequenceOptions apply to the whole sequence.
type SequenceOptions struct {
	Repeat int  // iterations; 0 is treated as 1
	Async  bool // Animate's completion channel closes immediately
}

// Sequence is one step: property deltas plus timing.
type Sequence struct {
	Props   TransformProps
	Options StepOptions
}

// DefaultStepOptions are used by NewTransform.
var DefaultStepOptions = StepOptions{Duration: 0, Ease: "linear"}

// --- Host contract ---

// Element is a host render target. Style returns the currently applied
// values so drivers can animate from them.
type Element interface {
	ApplyStyle(Style)
	Style() Style
}

// DriverOptions are step options in the driver's native units.
type DriverOptions struct {
	Duration float64 // seconds
	Ease     string
}

// Animation is a running host animation.
type Animation interface {
	// Done is closed once the animation finished or was stopped.
	Done() <-chan struct{}
	Stop()
}

// Driver starts host animations from the element's current style towards
// target.
type Driver interface {
	Animate(el Element, target Style, opts DriverOptions) Animation
}

// SceneSource exposes the most recently activated scene, whose config
// decides axis inversion for transform math.
type SceneSource interface {
	ActiveScene() *Scene
}

// Transformer encodes one property into style values.
type Transformer func(value any) Style

// --- Transform ---

// Transform is a reusable animation template: an ordered list of steps with
// sequence-wide options. Animate never mutates the steps; only the running
// control handle changes.
type Transform struct {
	sequences    []Sequence
	options      SequenceOptions
	transformers map[string]Transformer

	mu      sync.Mutex
	control Animation
}

// NewTransform creates a single-step transform.
func NewTransform(props TransformProps, opts StepOptions) *Transform {
	return NewSequenceTransform([]Sequence{{Props: props, Options: opts}}, SequenceOptions{})
}

// NewSequenceTransform creates a chained transform.
func NewSequenceTransform(seqs []Sequence, opts SequenceOptions) *Transform {
	if opts.Repeat <= 0 {
		opts.Repeat = 1
	}
	return &Transform{
		sequences:    cloneSequences(seqs),
		options:      opts,
		transformers: make(map[string]Transformer),
	}
}

// Sequences returns a copy of the steps.
func (t *Transform) Sequences() []Sequence { return cloneSequences(t.sequences) }

// Options returns the sequence options.
func (t *Transform) Options() SequenceOptions { return t.options }

// Repeat multiplies the repeat count by n, so Repeat(2).Repeat(3) runs six
// times.
func (t *Transform) Repeat(n int) *Transform {
	t.options.Repeat *= n
	return t
}

// Overwrite installs a custom encoder for key, replacing the built-in
// handler. Use PropTransform to post-process the whole property set.
func (t *Transform) Overwrite(key string, fn Transformer) *Transform {
	t.transformers[key] = fn
	return t
}

// Copy returns an independent transform with the same steps, options and
// transformers and no running control.
func (t *Transform) Copy() *Transform {
	c := NewSequenceTransform(t.sequences, t.options)
	maps.Copy(c.transformers, t.transformers)
	return c
}

// Control returns the running host animation, or nil.
func (t *Transform) Control() Animation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.control
}

func (t *Transform) setControl(a Animation) {
	t.mu.Lock()
	t.control = a
	t.mu.Unlock()
}

// clearControl drops the handle only if it still points at a.
func (t *Transform) clearControl(a Animation) {
	t.mu.Lock()
	if t.control == a {
		t.control = nil
	}
	t.mu.Unlock()
}

// Stop stops the running step, if any.
func (t *Transform) Stop() {
	if a := t.Control(); a != nil {
		a.Stop()
	}
}

// AnimateParams bundle the collaborators of Animate.
type AnimateParams struct {
	Driver  Driver
	Element Element
	Scenes  SceneSource
	State   TransformProps       // starting property state
	After   func(TransformProps) // called with the final merged state
}

type plannedStep struct {
	initial, target Style
	opts            DriverOptions
	async           bool
}

// Animate plays the sequence against the element. Errors for a detached
// element, a missing driver, a missing active scene or an invalid position are returned
// before anything is applied. The returned channel closes once every
// synchronous step finished, or immediately for an async sequence, in which
// case After runs before Animate returns. Cancelling ctx stops the current
// step and ends the sequence without calling After.
func (t *Transform) Animate(ctx context.Context, p AnimateParams) (<-chan struct{}, error) {
	if p.Element == nil {
		return nil, ErrNoElement
	}
	if p.Driver == nil {
		return nil, ErrNoDriver
	}
	if p.Scenes == nil || p.Scenes.ActiveScene() == nil {
		return nil, ErrNoActiveScene
	}
	cfg := p.Scenes.ActiveScene().Config()

	plan, final, err := t.plan(p.State, cfg.InvertX, cfg.InvertY)
	if err != nil {
		return nil, fmt.Errorf("animate: %w", err)
	}
	LoggerFrom(ctx).Debug("[reverie] animating", "steps", len(plan), "repeat", t.options.Repeat)

	done := make(chan struct{})
	if t.options.Async {
		close(done)
		if p.After != nil {
			p.After(p.State)
		}
	}

	go func() {
		for _, step := range plan {
			p.Element.ApplyStyle(step.initial)
			anim := p.Driver.Animate(p.Element, step.target, step.opts)
			t.setControl(anim)

			if step.async {
				go func(anim Animation, target Style) {
					<-anim.Done()
					p.Element.ApplyStyle(target)
					t.clearControl(anim)
				}(anim, step.target)
				continue
			}

			select {
			case <-anim.Done():
			case <-ctx.Done():
				anim.Stop()
				t.clearControl(anim)
				if !t.options.Async {
					close(done)
				}
				return
			}
			p.Element.ApplyStyle(step.target)
			t.clearControl(anim)
		}

		if !t.options.Async {
			if p.After != nil {
				p.After(final)
			}
			close(done)
		}
	}()
	return done, nil
}

// plan precomputes the initial and target style of every step for every
// repetition.
func (t *Transform) plan(state TransformProps, invertX, invertY bool) ([]plannedStep, TransformProps, error) {
	state, err := state.Merge(TransformProps{})
	if err != nil {
		return nil, TransformProps{}, err
	}
	var plan []plannedStep
	for i := 0; i < t.options.Repeat; i++ {
		for _, seq := range t.sequences {
			initial, err := t.propsToStyle(state, invertX, invertY)
			if err != nil {
				return nil, TransformProps{}, err
			}
			state, err = state.Merge(seq.Props)
			if err != nil {
				return nil, TransformProps{}, err
			}
			target, err := t.propsToStyle(state, invertX, invertY)
			if err != nil {
				return nil, TransformProps{}, err
			}
			plan = append(plan, plannedStep{
				initial: initial,
				target:  target,
				opts:    toDriverOptions(seq.Options),
				async:   seq.Options.Async,
			})
		}
	}
	return plan, state, nil
}

// StyleFor derives the style of props as seen from the given scene.
func (t *Transform) StyleFor(scene *Scene, props TransformProps) (Style, error) {
	if scene == nil {
		return nil, ErrNoActiveScene
	}
	cfg := scene.Config()
	norm, err := props.normalized()
	if err != nil {
		return nil, err
	}
	return t.propsToStyle(norm, cfg.InvertX, cfg.InvertY)
}

func (t *Transform) propsToStyle(props TransformProps, invertX, invertY bool) (Style, error) {
	style := Style{PropTransform: transformString(props, invertX, invertY)}
	if fn := t.transformers[PropTransform]; fn != nil {
		style.Merge(fn(props))
	}
	for _, pv := range props.values() {
		if fn := t.transformers[pv.key]; fn != nil {
			style.Merge(fn(pv.value))
			continue
		}
		out, err := defaultHandler(pv, invertX, invertY)
		if err != nil {
			return nil, err
		}
		style.Merge(out)
	}
	return style, nil
}

func defaultHandler(pv propValue, invertX, invertY bool) (Style, error) {
	switch pv.key {
	case PropPosition:
		return PositionToCSS(pv.value.(Position), invertY, invertX)
	case PropBackgroundColor:
		return BackgroundToCSS(pv.value.(Background)), nil
	case PropOpacity, PropBackgroundOpacity:
		return Style{"opacity": pv.value}, nil
	}
	return nil, nil
}

// transformString centers the element on its anchor, then scales and
// rotates it.
func transformString(props TransformProps, invertX, invertY bool) string {
	tx, ty := "-50%", "-50%"
	if invertX {
		tx = "50%"
	}
	if invertY {
		ty = "50%"
	}
	parts := []string{fmt.Sprintf("translate(%s, %s)", tx, ty)}
	if props.Scale != nil {
		parts = append(parts, fmt.Sprintf("scale(%s)", formatFloat(*props.Scale)))
	}
	if props.Rotation != nil {
		parts = append(parts, fmt.Sprintf("rotate(%sdeg)", formatFloat(*props.Rotation)))
	}
	return strings.Join(parts, " ")
}

func toDriverOptions(o StepOptions) DriverOptions {
	return DriverOptions{Duration: float64(o.Duration) / 1000, Ease: o.Ease}
}

func cloneSequences(seqs []Sequence) []Sequence {
	out := make([]Sequence, len(seqs))
	for i, s := range seqs {
		out[i] = s
		out[i].Props.Extra = maps.Clone(s.Props.Extra)
	}
	return out
}
