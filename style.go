package reverie

import (
	"maps"
	"strconv"
	"strings"
)

// Style is a host-agnostic keyframe dictionary: property name to target
// value. Values are float64 for numeric properties and string otherwise.
type Style map[string]any

// Clone returns a shallow copy of s.
func (s Style) Clone() Style {
	if s == nil {
		return Style{}
	}
	return maps.Clone(s)
}

// Merge copies every key of other into s, overwriting existing keys.
func (s Style) Merge(other Style) Style {
	for k, v := range other {
		s[k] = v
	}
	return s
}

// Number returns the numeric value stored under key. Strings holding a
// plain number or a pixel length ("12px") are parsed; anything else
// reports false.
func (s Style) Number(key string) (float64, bool) {
	return styleNumber(s[key])
}

func styleNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(n, "px"), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
