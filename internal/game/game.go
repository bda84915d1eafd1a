package game

import (
	"fmt"
	"image/color"
	"time"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// statusDurationMs is how long a transient status line stays on screen.
const statusDurationMs = 2500

// Game is the ebiten window around an Arena. Each Update pumps transport
// callbacks and ticks the arena; Draw renders the latest Frame.
type Game struct {
	arena *Arena
	pump  func() int

	width  int // playfield
	height int

	showHUD  bool
	showFeed bool
	paused   bool
	simNow   float64 // ms, advances only while unpaused

	clock       func() float64 // wall ms
	lastWall    float64
	wallStarted bool

	status      string
	statusUntil float64

	// Offscreen buffer for HUD text, rendered at 1x and blitted at hudScale.
	hudBuf *ebiten.Image

	copyText func(string) error
}

// hudScale is the integer upscale factor applied to the HUD box.
const hudScale = 2

// maxFrameGapMs caps the time one frame may add, e.g. after the window was
// dragged or the process stopped.
const maxFrameGapMs = 250

// New wraps arena. pump, usually Client.Dispatch, runs at the start of every
// Update and may be nil.
func New(arena *Arena, pump func() int) *Game {
	cfg := arena.Config()
	g := &Game{
		arena:    arena,
		pump:     pump,
		width:    int(cfg.Width),
		height:   int(cfg.Height),
		showHUD:  true,
		showFeed: arena.Feed() != nil,
		copyText: clipboard.WriteAll,
	}
	start := time.Now()
	g.clock = func() float64 { return float64(time.Since(start)) / float64(time.Millisecond) }
	g.hudBuf = ebiten.NewImage(g.width/hudScale, g.height/hudScale)
	return g
}

// Update runs one frame.
func (g *Game) Update() error {
	g.handleInput()

	if g.pump != nil {
		g.pump()
	}
	g.advance(g.clock())
	if g.paused {
		return nil
	}
	g.arena.Tick(g.simNow)
	return nil
}

// advance moves simulation time by the wall time measured since the previous
// frame. Paused frames add nothing.
func (g *Game) advance(wall float64) {
	if g.wallStarted && !g.paused {
		dt := wall - g.lastWall
		if dt > maxFrameGapMs {
			dt = maxFrameGapMs
		}
		if dt > 0 {
			g.simNow += dt
		}
	}
	g.wallStarted = true
	g.lastWall = wall
}

// handleInput processes edge-triggered key presses.
func (g *Game) handleInput() {
	if inpututil.IsKeyJustPressed(ebiten.KeyH) {
		g.showHUD = !g.showHUD
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF) && g.arena.Feed() != nil {
		g.showFeed = !g.showFeed
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		g.copyScoreboard()
	}
}

// copyScoreboard puts the session ranking on the system clipboard.
func (g *Game) copyScoreboard() {
	sb := g.arena.Scoreboard()
	if sb == nil {
		g.setStatus("no scoreboard")
		return
	}
	if err := g.copyText(sb.Format()); err != nil {
		g.setStatus(fmt.Sprintf("clipboard: %v", err))
		return
	}
	g.setStatus("scoreboard copied")
}

func (g *Game) setStatus(msg string) {
	g.status = msg
	g.statusUntil = g.simNow + statusDurationMs
}

// Draw renders the playfield, the HUD and the combat feed.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 4, G: 4, B: 12, A: 255})
	drawGrid(screen, g.width, g.height, 64, color.RGBA{R: 18, G: 18, B: 36, A: 255})

	f := g.arena.Frame()
	for _, b := range f.Bullets {
		drawBullet(screen, b)
	}
	for _, s := range f.Ships {
		drawShip(screen, s)
	}

	if g.showHUD {
		g.drawHUD(screen, f)
	}
	if g.showFeed {
		g.arena.Feed().Draw(screen, g.width, g.height)
	}
}

func (g *Game) drawHUD(screen *ebiten.Image, f Frame) {
	b := g.arena.Bullets()
	state := "LIVE"
	if g.paused {
		state = "PAUSED"
	}
	lines := []string{
		fmt.Sprintf("%s  T=%d  ships=%d", state, f.Tick, len(f.Ships)),
		fmt.Sprintf("bullets %d/%d (free %d)", b.ActiveCount(), b.Allocated(), b.FreeCount()),
		"[H] HUD  [F] feed  [P] pause",
		"[C] copy scoreboard",
	}
	if g.status != "" && (g.simNow < g.statusUntil || g.paused) {
		lines = append(lines, g.status)
	}

	const lineH = 12
	const charW = 6
	const padX = 5
	const padY = 4

	maxLen := 0
	for _, l := range lines {
		if len(l) > maxLen {
			maxLen = len(l)
		}
	}
	boxW := float32(maxLen*charW + padX*2)
	boxH := float32(len(lines)*lineH + padY*2)
	bx := float32(4)
	by := float32(4)

	g.hudBuf.Clear()
	vector.FillRect(g.hudBuf, bx, by, boxW, boxH, color.RGBA{R: 6, G: 6, B: 16, A: 210}, false)
	vector.StrokeRect(g.hudBuf, bx, by, boxW, boxH, 1.0, color.RGBA{R: 60, G: 60, B: 110, A: 180}, false)
	for i, line := range lines {
		ebitenutil.DebugPrintAt(g.hudBuf, line, int(bx)+padX, int(by)+padY+i*lineH)
	}

	opts := &ebiten.DrawImageOptions{}
	opts.GeoM.Scale(hudScale, hudScale)
	screen.DrawImage(g.hudBuf, opts)
}

// Layout reserves room for the feed panel to the right of the playfield.
func (g *Game) Layout(_, _ int) (int, int) {
	return g.WindowWidth(), g.height
}

// WindowWidth is the playfield width plus the feed panel when present.
func (g *Game) WindowWidth() int {
	if g.arena.Feed() == nil {
		return g.width
	}
	return g.width + feedPanelWidth
}

// WindowHeight is the playfield height.
func (g *Game) WindowHeight() int { return g.height }
