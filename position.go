package reverie

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// PositionKind discriminates the Position variants.
type PositionKind uint8

const (
	PositionKindCommon PositionKind = iota // named slot: left, center, right
	PositionKindCoord                      // explicit x/y pair
	PositionKindAlign                      // normalized 0-1 alignment
)

// Position is a closed set of position descriptors: CommonPosition, Coord2D
// and Align. Convert with ToCoord2D before deriving host styles.
type Position interface {
	PositionKind() PositionKind
}

// --- CommonPosition ---

// CommonPosition is one of the three named character slots.
type CommonPosition string

const (
	PositionLeft   CommonPosition = "left"
	PositionCenter CommonPosition = "center"
	PositionRight  CommonPosition = "right"
)

func (CommonPosition) PositionKind() PositionKind { return PositionKindCommon }

// Valid reports whether p is one of the named slots.
func (p CommonPosition) Valid() bool {
	return p == PositionLeft || p == PositionCenter || p == PositionRight
}

// --- Coord ---

// CoordUnit tells how a Coord value is interpreted.
type CoordUnit uint8

const (
	CoordUnset   CoordUnit = iota // no value; leaves the axis untouched
	CoordPixels                   // absolute pixels
	CoordPercent                  // percent of the container
)

// Coord is a single axis coordinate.
type Coord struct {
	Unit  CoordUnit
	Value float64
}

// Px returns a pixel coordinate.
func Px(v float64) Coord { return Coord{Unit: CoordPixels, Value: v} }

// Percent returns a percentage coordinate.
func Percent(v float64) Coord { return Coord{Unit: CoordPercent, Value: v} }

// CSS renders the coordinate: "12px", "50%", or "" when unset.
func (c Coord) CSS() string {
	switch c.Unit {
	case CoordPixels:
		return formatFloat(c.Value) + "px"
	case CoordPercent:
		return formatFloat(c.Value) + "%"
	}
	return ""
}

var percentPattern = regexp.MustCompile(`^-?\d+(\.\d+)?%$`)

// ParseCoord accepts a number (pixels) or a percentage string like "-25%".
func ParseCoord(v any) (Coord, error) {
	if n, ok := toFloat(v); ok {
		return Px(n), nil
	}
	if s, ok := v.(string); ok && percentPattern.MatchString(s) {
		f, _ := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		return Percent(f), nil
	}
	return Coord{}, fmt.Errorf("%w: coordinate %v is neither a number nor a percentage", ErrInvalidPosition, v)
}

// --- Coord2D ---

// Coord2D is an x/y position with optional pixel offsets. An axis left
// CoordUnset keeps its previous value when merged.
type Coord2D struct {
	X, Y             Coord
	XOffset, YOffset float64
}

func (Coord2D) PositionKind() PositionKind { return PositionKindCoord }

// --- Align ---

// Align positions by normalized alignment in [0, 1]. Nil fields leave the
// axis unset.
type Align struct {
	XAlign, YAlign   *float64
	XOffset, YOffset float64
}

func (Align) PositionKind() PositionKind { return PositionKindAlign }

// Float returns a pointer to v, for Align literals.
func Float(v float64) *float64 { return &v }

// --- Validation ---

// ValidatePosition reports ErrInvalidPosition when p has no recognized shape.
func ValidatePosition(p Position) error {
	switch v := p.(type) {
	case CommonPosition:
		if !v.Valid() {
			return fmt.Errorf("%w: unknown named position %q", ErrInvalidPosition, string(v))
		}
	case Coord2D:
		// Unset axes are legal: Align with one nil field canonicalizes to
		// a pair with one CoordUnset axis.
		for _, c := range []Coord{v.X, v.Y} {
			if c.Unit > CoordPercent {
				return fmt.Errorf("%w: unknown coordinate unit %d", ErrInvalidPosition, c.Unit)
			}
		}
	case Align:
		for _, a := range []*float64{v.XAlign, v.YAlign} {
			if a != nil && (*a < 0 || *a > 1) {
				return fmt.Errorf("%w: alignment %v outside [0, 1]", ErrInvalidPosition, *a)
			}
		}
	case nil:
		return fmt.Errorf("%w: nil position", ErrInvalidPosition)
	default:
		return fmt.Errorf("%w: unsupported position type %T", ErrInvalidPosition, p)
	}
	return nil
}

// ParsePosition discriminates a loosely typed descriptor (as decoded from a
// save file or config) into a Position. Strings must name a slot; maps are
// classified structurally: xalign/yalign keys make an Align, x/y keys make a
// Coord2D.
func ParsePosition(v any) (Position, error) {
	switch p := v.(type) {
	case Position:
		if err := ValidatePosition(p); err != nil {
			return nil, err
		}
		return p, nil
	case string:
		cp := CommonPosition(p)
		if err := ValidatePosition(cp); err != nil {
			return nil, err
		}
		return cp, nil
	case map[string]any:
		return parsePositionMap(p)
	}
	return nil, fmt.Errorf("%w: unsupported descriptor %T", ErrInvalidPosition, v)
}

func parsePositionMap(m map[string]any) (Position, error) {
	xoff, err := optionalNumber(m, "xoffset")
	if err != nil {
		return nil, err
	}
	yoff, err := optionalNumber(m, "yoffset")
	if err != nil {
		return nil, err
	}
	_, hasXAlign := m["xalign"]
	_, hasYAlign := m["yalign"]
	if hasXAlign || hasYAlign {
		a := Align{XOffset: xoff, YOffset: yoff}
		for key, dst := range map[string]**float64{"xalign": &a.XAlign, "yalign": &a.YAlign} {
			raw, ok := m[key]
			if !ok {
				continue
			}
			n, ok := toFloat(raw)
			if !ok {
				return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidPosition, key)
			}
			*dst = Float(n)
		}
		if err := ValidatePosition(a); err != nil {
			return nil, err
		}
		return a, nil
	}
	x, err := ParseCoord(m["x"])
	if err != nil {
		return nil, err
	}
	y, err := ParseCoord(m["y"])
	if err != nil {
		return nil, err
	}
	return Coord2D{X: x, Y: y, XOffset: xoff, YOffset: yoff}, nil
}

func optionalNumber(m map[string]any, key string) (float64, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return 0, nil
	}
	n, ok := toFloat(raw)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidPosition, key)
	}
	return n, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// --- Conversion ---

// ToCoord2D converts any valid position into its canonical coordinate form.
func ToCoord2D(p Position) (Coord2D, error) {
	if err := ValidatePosition(p); err != nil {
		return Coord2D{}, err
	}
	switch v := p.(type) {
	case CommonPosition:
		base := Coord2D{X: Percent(50), Y: Percent(50)}
		switch v {
		case PositionLeft:
			base.X = Percent(0)
		case PositionRight:
			base.X = Percent(100)
		}
		return base, nil
	case Coord2D:
		return v, nil
	case Align:
		c := Coord2D{XOffset: v.XOffset, YOffset: v.YOffset}
		if v.XAlign != nil {
			c.X = Percent(*v.XAlign * 100)
		}
		if v.YAlign != nil {
			c.Y = Percent(*v.YAlign * 100)
		}
		return c, nil
	}
	return Coord2D{}, fmt.Errorf("%w: unsupported position type %T", ErrInvalidPosition, p)
}

// commonSlotX is where named slots land horizontally on stage.
var commonSlotX = map[CommonPosition]string{
	PositionLeft:   "25.33%",
	PositionCenter: "50%",
	PositionRight:  "75.66%",
}

// PositionToCSS derives left/right/top/bottom style values. invertY anchors
// to the bottom edge instead of the top; invertX anchors to the right edge.
// Unset axes stay "auto".
func PositionToCSS(p Position, invertY, invertX bool) (Style, error) {
	if err := ValidatePosition(p); err != nil {
		return nil, err
	}
	var x, y string
	var xoff, yoff float64
	switch v := p.(type) {
	case CommonPosition:
		x, y = commonSlotX[v], "50%"
	case Coord2D:
		x, y = v.X.CSS(), v.Y.CSS()
		xoff, yoff = v.XOffset, v.YOffset
	case Align:
		if v.XAlign != nil {
			x = Percent(*v.XAlign * 100).CSS()
		}
		if v.YAlign != nil {
			y = Percent(*v.YAlign * 100).CSS()
		}
		xoff, yoff = v.XOffset, v.YOffset
	}

	style := Style{"left": "auto", "right": "auto", "top": "auto", "bottom": "auto"}
	if y != "" {
		key := "top"
		if invertY {
			key = "bottom"
		}
		style[key] = offsetToCSS(y, yoff)
	}
	if x != "" {
		key := "left"
		if invertX {
			key = "right"
		}
		style[key] = offsetToCSS(x, xoff)
	}
	return style, nil
}

func offsetToCSS(origin string, offset float64) string {
	if offset == 0 {
		return origin
	}
	return fmt.Sprintf("calc(%s + %spx)", origin, formatFloat(offset))
}
