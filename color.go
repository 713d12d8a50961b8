package reverie

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
type Color struct {
	R float64 `yaml:"r"`
	G float64 `yaml:"g"`
	B float64 `yaml:"b"`
	A float64 `yaml:"a"`
}

// ColorBlack is the stage color when a scene has no background.
var ColorBlack = Color{0, 0, 0, 1}

// ParseColor accepts "#rgb", "#rrggbb", "#rrggbbaa" or an SVG color name
// such as "midnightblue".
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		c, ok := colornames.Map[strings.ToLower(s)]
		if !ok {
			return Color{}, fmt.Errorf("parse color %q: unknown color name", s)
		}
		return ColorFromRGBA(c), nil
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return Color{}, fmt.Errorf("parse color %q: want 3, 6 or 8 hex digits", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	return ColorFromRGBA(color.RGBA{
		R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v),
	}), nil
}

// ColorFromRGBA converts a straight-alpha 8-bit color.
func ColorFromRGBA(c color.RGBA) Color {
	return Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
		A: float64(c.A) / 255,
	}
}

// RGBA8 converts c to an 8-bit color.RGBA, premultiplying alpha as the
// image/color package expects.
func (c Color) RGBA8() color.RGBA {
	return color.RGBA{
		R: clamp8(c.R * c.A),
		G: clamp8(c.G * c.A),
		B: clamp8(c.B * c.A),
		A: clamp8(c.A),
	}
}

// Hex renders "#rrggbb", or "#rrggbbaa" when the color is translucent.
func (c Color) Hex() string {
	if c.A >= 1 {
		return fmt.Sprintf("#%02x%02x%02x", clamp8(c.R), clamp8(c.G), clamp8(c.B))
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", clamp8(c.R), clamp8(c.G), clamp8(c.B), clamp8(c.A))
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
