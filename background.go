package reverie

// BackgroundKind discriminates Background values.
type BackgroundKind string

const (
	BackgroundNone  BackgroundKind = ""
	BackgroundColor BackgroundKind = "color"
	BackgroundImage BackgroundKind = "image"
)

// Background is a scene backdrop: nothing, a solid color, or an image URL.
type Background struct {
	Kind  BackgroundKind `yaml:"kind,omitempty"`
	Color Color          `yaml:"color,omitempty"`
	URL   string         `yaml:"url,omitempty"`
}

// ColorBackground returns a solid color backdrop.
func ColorBackground(c Color) Background {
	return Background{Kind: BackgroundColor, Color: c}
}

// ImageBackground returns an image backdrop.
func ImageBackground(url string) Background {
	return Background{Kind: BackgroundImage, URL: url}
}

// BackgroundToSrc returns the image source of bg, or "" for colors and
// empty backdrops.
func BackgroundToSrc(bg Background) string {
	if bg.Kind == BackgroundImage {
		return bg.URL
	}
	return ""
}

// BackgroundToCSS derives backgroundImage or backgroundColor.
func BackgroundToCSS(bg Background) Style {
	switch bg.Kind {
	case BackgroundImage:
		if bg.URL != "" {
			return Style{"backgroundImage": "url(" + bg.URL + ")"}
		}
	case BackgroundColor:
		return Style{"backgroundColor": bg.Color.Hex()}
	}
	return Style{}
}
