package reverie

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// ImageLoader loads a backdrop image by URL.
type ImageLoader func(url string) (*ebiten.Image, error)

// Game hosts a Runtime inside an ebiten window. Actions run on their own
// goroutine while Update ticks the tween driver at the engine's TPS; Draw
// paints the stage element's backdrop. The game terminates once the
// runtime drained its queue.
type Game struct {
	cfg    Config
	rt     *Runtime
	driver *TweenDriver
	stage  *StyleElement
	images ImageLoader

	once   sync.Once
	cancel context.CancelFunc
	done   chan error

	cache  map[string]*ebiten.Image
	err    error
	player *audio.Player
}

// NewGame wires rt to a fresh tween driver and stage element. Pass the
// returned driver and stage to the runtime with WithDriver and WithStage,
// or use NewGameRuntime.
func NewGame(cfg Config, rt *Runtime, driver *TweenDriver, stage *StyleElement, images ImageLoader) *Game {
	return &Game{
		cfg:    cfg,
		rt:     rt,
		driver: driver,
		stage:  stage,
		images: images,
		cache:  make(map[string]*ebiten.Image),
	}
}

// NewGameRuntime builds a runtime and a Game sharing a tween driver and a
// stage element.
func NewGameRuntime(cfg Config, reg *SceneRegistry, images ImageLoader, opts ...RuntimeOption) (*Game, *Runtime) {
	driver := NewTweenDriver()
	stage := NewStyleElement("stage")
	opts = append([]RuntimeOption{WithDriver(driver), WithStage(stage)}, opts...)
	rt := NewRuntime(reg, opts...)
	return NewGame(cfg, rt, driver, stage, images), rt
}

// PlayMusic routes deck's output to the speakers through ebiten's audio
// context. Call it once, before Run.
func (g *Game) PlayMusic(deck *MusicDeck) error {
	ctx := audio.CurrentContext()
	if ctx == nil {
		ctx = audio.NewContext(int(deck.SampleRate()))
	}
	p, err := ctx.NewPlayer(deck.PCM())
	if err != nil {
		return fmt.Errorf("reverie: music player: %w", err)
	}
	p.Play()
	g.player = p
	return nil
}

// Update starts the runtime on the first frame and advances animations.
func (g *Game) Update() error {
	g.once.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		g.cancel = cancel
		g.done = make(chan error, 1)
		go func() { g.done <- g.rt.Run(ctx) }()
	})
	g.driver.Update(float32(1 / float64(ebiten.TPS())))

	select {
	case err := <-g.done:
		g.cancel()
		if err != nil {
			return fmt.Errorf("reverie: runtime: %w", err)
		}
		return ebiten.Termination
	default:
		return nil
	}
}

// Draw paints the stage backdrop.
func (g *Game) Draw(screen *ebiten.Image) {
	style := g.stage.Style()
	alpha := 1.0
	if v, ok := style.Number("opacity"); ok {
		alpha = v
	}

	if u := backgroundURL(style); u != "" {
		if img := g.image(u); img != nil {
			sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
			iw, ih := img.Bounds().Dx(), img.Bounds().Dy()
			var op ebiten.DrawImageOptions
			op.GeoM.Scale(float64(sw)/float64(iw), float64(sh)/float64(ih))
			op.ColorScale.ScaleAlpha(float32(alpha))
			screen.DrawImage(img, &op)
		}
	} else if hex, ok := style["backgroundColor"].(string); ok && hex != "" {
		if c, err := ParseColor(hex); err == nil {
			c.A *= alpha
			screen.Fill(c.RGBA8())
		}
	}

	if g.cfg.Debug {
		name := "-"
		if s := g.rt.ActiveScene(); s != nil {
			name = s.Name()
		}
		ebitenutil.DebugPrint(screen, fmt.Sprintf("FPS: %.1f\nTPS: %.1f\nscene: %s\nqueued: %d",
			ebiten.ActualFPS(), ebiten.ActualTPS(), name, g.rt.Pending()))
	}
}

// Layout returns the configured logical size.
func (g *Game) Layout(_, _ int) (int, int) {
	return g.cfg.Width, g.cfg.Height
}

// Err returns the last image loading error, if any.
func (g *Game) Err() error { return g.err }

func (g *Game) image(u string) *ebiten.Image {
	if img, ok := g.cache[u]; ok {
		return img
	}
	if g.images == nil {
		return nil
	}
	img, err := g.images(u)
	if err != nil {
		g.err = err
		debugf("image %s: %v", u, err)
	} else if s := g.rt.ActiveScene(); s != nil {
		Emit(s.Events(), EventSceneImageLoaded, struct{}{})
	}
	g.cache[u] = img
	return img
}

func backgroundURL(style Style) string {
	v, _ := style["backgroundImage"].(string)
	if !strings.HasPrefix(v, "url(") || !strings.HasSuffix(v, ")") {
		return ""
	}
	return v[len("url(") : len(v)-1]
}

// Run opens a window sized by cfg and blocks until the story ends or the
// window closes.
func Run(g *Game) error {
	ebiten.SetWindowTitle(g.cfg.Title)
	ebiten.SetWindowSize(g.cfg.Width, g.cfg.Height)
	return ebiten.RunGame(g)
}
