package reverie

// Transition describes how the incoming scene's backdrop replaces the
// outgoing one. Plan returns the starting properties of the incoming layer
// and the transform that brings it on stage.
type Transition interface {
	Name() string
	Plan() (initial TransformProps, t *Transform)
}

// Dissolve cross-fades the incoming backdrop over the outgoing one.
type Dissolve struct {
	Duration int // milliseconds
	Ease     string
}

func (d Dissolve) Name() string { return "dissolve" }

func (d Dissolve) Plan() (TransformProps, *Transform) {
	initial := TransformProps{Opacity: Float(0)}
	return initial, NewTransform(TransformProps{Opacity: Float(1)}, StepOptions{
		Duration: d.Duration,
		Ease:     easeOr(d.Ease, "linear"),
	})
}

// FadeDirection is the edge a FadeIn slides in from.
type FadeDirection string

const (
	FadeFromLeft   FadeDirection = "left"
	FadeFromRight  FadeDirection = "right"
	FadeFromTop    FadeDirection = "top"
	FadeFromBottom FadeDirection = "bottom"
)

// FadeIn fades the incoming backdrop in while sliding it Offset pixels from
// Direction to its resting place.
type FadeIn struct {
	Direction FadeDirection
	Offset    float64
	Duration  int // milliseconds
	Ease      string
}

func (f FadeIn) Name() string { return "fadeIn" }

func (f FadeIn) Plan() (TransformProps, *Transform) {
	var dx, dy float64
	switch f.Direction {
	case FadeFromLeft:
		dx = -f.Offset
	case FadeFromRight:
		dx = f.Offset
	case FadeFromTop:
		dy = -f.Offset
	case FadeFromBottom:
		dy = f.Offset
	}
	initial := TransformProps{
		Opacity:  Float(0),
		Position: Coord2D{X: Percent(50), Y: Percent(50), XOffset: dx, YOffset: dy},
	}
	return initial, NewTransform(TransformProps{
		Opacity:  Float(1),
		Position: Coord2D{X: Percent(50), Y: Percent(50)},
	}, StepOptions{Duration: f.Duration, Ease: easeOr(f.Ease, "easeOut")})
}

func easeOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
