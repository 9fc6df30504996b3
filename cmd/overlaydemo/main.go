// Command overlaydemo runs a small ebiten host around the overlay
// dispatcher: two plugin sessions, keyboard-driven suppression
// predicates, and a deliberate crash to show per-session isolation.
//
// Keys:
//
//	H      toggle the user-hidden predicate
//	C      toggle the cutscene predicate
//	G      toggle the group-pose predicate
//	P      panic the clock session's draw handler
//	Enter  dismiss the error banner
package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"log"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/atlas"
	"github.com/gogpu/overlay/config"
	"github.com/gogpu/overlay/lease"
	"github.com/gogpu/overlay/texload"
)

// demoHost owns the shared font handles and an optional named texture.
// The scene readies after the first rendered frame, like a real host
// that needs a swapchain before handing out resources.
type demoHost struct {
	ready     atomic.Bool
	def       *lease.Shared
	icon      *lease.Shared
	mono      *lease.Shared
	fixedIcon *lease.Shared

	mu       sync.Mutex
	textures map[string]*lease.Shared
}

func newDemoHost() *demoHost {
	return &demoHost{
		def:       lease.NewShared(),
		icon:      lease.NewShared(),
		mono:      lease.NewShared(),
		fixedIcon: lease.NewShared(),
		textures:  make(map[string]*lease.Shared),
	}
}

func (h *demoHost) SceneReady() bool              { return h.ready.Load() }
func (h *demoHost) DefaultFont() lease.Resource   { return h.def }
func (h *demoHost) IconFont() lease.Resource      { return h.icon }
func (h *demoHost) MonoFont() lease.Resource      { return h.mono }
func (h *demoHost) FixedIconFont() lease.Resource { return h.fixedIcon }

func (h *demoHost) Resource(name string) (lease.Resource, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.textures[name]
	return r, ok
}

// registerTexture exposes a named texture handle, initially
// unavailable until the load finishes.
func (h *demoHost) registerTexture(name string) *lease.Shared {
	s := lease.NewShared()
	h.mu.Lock()
	h.textures[name] = s
	h.mu.Unlock()
	return s
}

// demoConditions is toggled from Update; ebiten runs Update and Draw
// on the same goroutine, so plain fields suffice.
type demoConditions struct {
	userHidden bool
	cutscene   bool
	gpose      bool
}

func (c *demoConditions) UserHidden() bool { return c.userHidden }
func (c *demoConditions) InCutscene() bool { return c.cutscene }
func (c *demoConditions) InGPose() bool    { return c.gpose }

// demoPresenter draws the faulted-session banner and dismisses it on
// Enter.
type demoPresenter struct {
	screen  *ebiten.Image
	dismiss bool
}

func (p *demoPresenter) PresentError(namespace string, err error) bool {
	if p.screen != nil {
		ebitenutil.DebugPrintAt(p.screen,
			fmt.Sprintf("%s crashed: %v\n[Enter] to dismiss", namespace, err),
			16, 200)
	}
	return p.dismiss
}

type game struct {
	host       *demoHost
	conditions *demoConditions
	presenter  *demoPresenter
	dispatcher *overlay.Dispatcher

	clock *overlay.Session
	badge *overlay.Session

	width, height int
	panicNext     bool
	screen        *ebiten.Image
	bgTexture     *texload.Texture
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyH) {
		g.conditions.userHidden = !g.conditions.userHidden
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		g.conditions.cutscene = !g.conditions.cutscene
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyG) {
		g.conditions.gpose = !g.conditions.gpose
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		g.panicNext = true
	}
	g.presenter.dismiss = inpututil.IsKeyJustPressed(ebiten.KeyEnter)
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 18, G: 18, B: 28, A: 255})
	ebitenutil.DebugPrintAt(screen,
		"[H]ide  [C]utscene  [G]pose  [P]anic clock", 16, g.height-24)

	g.screen = screen
	g.presenter.screen = screen
	g.host.ready.Store(true)

	g.dispatcher.Draw()
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.width || outsideHeight != g.height {
		g.width, g.height = outsideWidth, outsideHeight
		if g.dispatcher != nil {
			g.dispatcher.ResizeBuffers(outsideWidth, outsideHeight)
		}
	}
	return outsideWidth, outsideHeight
}

func main() {
	var (
		width       = flag.Int("width", 800, "window width")
		height      = flag.Int("height", 600, "window height")
		texturePath = flag.String("texture", "", "optional PNG exposed as the \"background\" resource")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	overlay.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	store, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	engine, err := atlas.NewEngine(goregular.TTF)
	if err != nil {
		log.Fatalf("Failed to build font engine: %v", err)
	}

	host := newDemoHost()
	conditions := &demoConditions{}
	presenter := &demoPresenter{}

	d := overlay.NewDispatcher(host,
		overlay.WithConditions(conditions),
		overlay.WithSettings(store),
		overlay.WithAtlasEngine(overlay.UseAtlasEngine(engine)),
		overlay.WithErrorPresenter(presenter))

	g := &game{
		host:       host,
		conditions: conditions,
		presenter:  presenter,
		dispatcher: d,
		width:      *width,
		height:     *height,
	}

	if g.clock, err = d.Register("clock"); err != nil {
		log.Fatalf("Failed to register clock: %v", err)
	}
	if g.badge, err = d.Register("badge"); err != nil {
		log.Fatalf("Failed to register badge: %v", err)
	}

	// Fonts come up shortly after the scene, so the badge session's
	// lease wait is observable.
	go func() {
		time.Sleep(2 * time.Second)
		host.def.SetAvailable(true)
		host.icon.SetAvailable(true)
		host.mono.SetAvailable(true)
		host.fixedIcon.SetAvailable(true)
	}()

	if *texturePath != "" {
		data, err := os.ReadFile(*texturePath)
		if err != nil {
			log.Fatalf("Failed to read texture: %v", err)
		}
		shared := host.registerTexture("background")
		loader := texload.NewLoader(texload.WithMaxSize(512))
		loader.LoadAsync(context.Background(), data).ThenOn(d,
			func(tex *texload.Texture, err error) {
				if err != nil {
					shared.Fail(err)
					return
				}
				g.bgTexture = tex
				shared.SetAvailable(true)
			})
	}

	g.clock.SetDrawHandler(func() {
		if g.panicNext {
			g.panicNext = false
			panic("demo: deliberate clock crash")
		}
		ebitenutil.DebugPrintAt(g.screen, fmt.Sprintf(
			"clock %s\nframes %d  last %v  max %v",
			time.Now().Format("15:04:05"),
			g.clock.FrameCount(),
			g.clock.Stats().Last().Round(time.Microsecond),
			g.clock.Stats().Max().Round(time.Microsecond)),
			16, 16)
	})
	g.clock.SetHideHandler(func() { slog.Info("clock hidden") })
	g.clock.SetShowHandler(func() { slog.Info("clock shown") })

	fontReady := false
	d.RunWhenUIPreparedOnDraw(func() {
		l, err := g.badge.DefaultFontLease()
		if err != nil {
			slog.Warn("default font lease", "error", err)
			return
		}
		l.WaitAsync().ThenOn(d, func(*lease.Lease, error) { fontReady = true })
	})
	g.badge.SetDrawHandler(func() {
		status := "waiting for default font..."
		if fontReady {
			status = "default font ready"
		}
		if g.bgTexture != nil {
			if w, h, err := g.bgTexture.Size(); err == nil {
				status += fmt.Sprintf("\nbackground %dx%d", w, h)
			}
		}
		ebitenutil.DebugPrintAt(g.screen, status, 16, 80)
	})

	ebiten.SetWindowSize(*width, *height)
	ebiten.SetWindowTitle("overlay demo")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(g); err != nil {
		log.Fatalf("Ebiten error: %v", err)
	}
}
