package pilot

import (
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	windowWidth  = 960
	windowHeight = 480
	padMargin    = 40
)

var (
	padRim       = color.RGBA{R: 90, G: 110, B: 160, A: 255}
	padFill      = color.RGBA{R: 20, G: 24, B: 40, A: 255}
	padHeld      = color.RGBA{R: 40, G: 60, B: 110, A: 255}
	padIndicator = color.RGBA{R: 120, G: 255, B: 140, A: 255}
	overlayShade = color.RGBA{R: 0, G: 0, B: 0, A: 180}
)

// Window is the ebiten control pad: move pad on the left, aim pad on the
// right. Mouse, touch and keyboard (WASD steers, arrows aim and fire) all
// drive the same pads.
type Window struct {
	session *Session
	pump    func() int

	mousePad *Pad
	touches  map[ebiten.TouchID]*Pad
	keyMove  bool
	keyAim   bool
	status   string
}

// NewWindow creates the pad window for s. pump is called first in every
// Update to apply transport deliveries (e.g. Remote.Dispatch); may be nil.
func NewWindow(s *Session, pump func() int) *Window {
	w := &Window{session: s, pump: pump, touches: make(map[ebiten.TouchID]*Pad)}
	w.layout(windowWidth, windowHeight)
	return w
}

// WindowSize returns the preferred window size.
func WindowSize() (int, int) { return windowWidth, windowHeight }

func (w *Window) layout(width, height int) {
	half := float64(width) / 2
	r := math.Min(half, float64(height))/2 - padMargin/2
	w.session.Move.SetSize(half/2, float64(height)/2, r)
	w.session.Aim.SetSize(half+half/2, float64(height)/2, r)
}

// Update implements ebiten.Game.
func (w *Window) Update() error {
	if w.pump != nil {
		w.pump()
	}
	s := w.session
	if !s.Joined() {
		w.mousePad, w.keyMove, w.keyAim = nil, false, false
		clear(w.touches)
		if s.GameOver() && (inpututil.IsKeyJustPressed(ebiten.KeyR) || inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) || len(inpututil.AppendJustPressedTouchIDs(nil)) > 0) {
			w.report(s.Rejoin())
		}
		return nil
	}

	w.handleMouse()
	w.handleTouches()
	w.handleKeys()
	return nil
}

func (w *Window) handleMouse() {
	x, y := ebiten.CursorPosition()
	px, py := float64(x), float64(y)
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		if p := w.padAt(px, py); p != nil {
			w.mousePad = p
			w.report(p.Press())
		}
	}
	if w.mousePad == nil {
		return
	}
	w.report(w.mousePad.Point(px, py))
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		w.report(w.mousePad.Release())
		w.mousePad = nil
	}
}

func (w *Window) handleTouches() {
	for _, id := range inpututil.AppendJustPressedTouchIDs(nil) {
		x, y := ebiten.TouchPosition(id)
		if p := w.padAt(float64(x), float64(y)); p != nil {
			w.touches[id] = p
			w.report(p.Press())
		}
	}
	for id, p := range w.touches {
		if inpututil.IsTouchJustReleased(id) {
			w.report(p.Release())
			delete(w.touches, id)
			continue
		}
		x, y := ebiten.TouchPosition(id)
		w.report(p.Point(float64(x), float64(y)))
	}
}

// handleKeys maps WASD onto the move pad and the arrow keys onto the aim pad.
func (w *Window) handleKeys() {
	mx, my := keyVector(ebiten.KeyA, ebiten.KeyD, ebiten.KeyW, ebiten.KeyS)
	w.keyMove = w.keyPad(w.session.Move, w.keyMove, mx, my)
	ax, ay := keyVector(ebiten.KeyArrowLeft, ebiten.KeyArrowRight, ebiten.KeyArrowUp, ebiten.KeyArrowDown)
	w.keyAim = w.keyPad(w.session.Aim, w.keyAim, ax, ay)
}

func keyVector(left, right, up, down ebiten.Key) (dx, dy float64) {
	if ebiten.IsKeyPressed(left) {
		dx--
	}
	if ebiten.IsKeyPressed(right) {
		dx++
	}
	if ebiten.IsKeyPressed(up) {
		dy--
	}
	if ebiten.IsKeyPressed(down) {
		dy++
	}
	return dx, dy
}

// keyPad holds p while the direction is non-zero and reports whether the
// keyboard now owns the press.
func (w *Window) keyPad(p *Pad, held bool, dx, dy float64) bool {
	if dx == 0 && dy == 0 {
		if held {
			w.report(p.Release())
		}
		return false
	}
	cx, cy, _ := p.Bounds()
	w.report(p.Point(cx+dx, cy+dy))
	if !held {
		w.report(p.Press())
	}
	return true
}

func (w *Window) padAt(x, y float64) *Pad {
	for _, p := range []*Pad{w.session.Move, w.session.Aim} {
		if p.Contains(x, y) {
			return p
		}
	}
	return nil
}

func (w *Window) report(err error) {
	if err != nil {
		w.status = err.Error()
	}
}

// Draw implements ebiten.Game.
func (w *Window) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 10, G: 10, B: 18, A: 255})
	drawPad(screen, w.session.Move)
	drawPad(screen, w.session.Aim)

	s := w.session
	ebitenutil.DebugPrintAt(screen, "MOVE (WASD)", padMargin, 8)
	ebitenutil.DebugPrintAt(screen, "AIM + FIRE (arrows)", windowWidth/2+padMargin, 8)
	line := "not joined"
	if s.Joined() {
		line = fmt.Sprintf("pilot: %s", s.Name())
	}
	if w.status != "" {
		line += "  |  " + w.status
	}
	ebitenutil.DebugPrintAt(screen, line, padMargin, windowHeight-20)

	if s.GameOver() && !s.Joined() {
		vector.FillRect(screen, 0, 0, windowWidth, windowHeight, overlayShade, false)
		ebitenutil.DebugPrintAt(screen, "GAME OVER", windowWidth/2-27, windowHeight/2-16)
		ebitenutil.DebugPrintAt(screen, "press R or tap to play again", windowWidth/2-84, windowHeight/2+4)
	}
}

func drawPad(screen *ebiten.Image, p *Pad) {
	cx, cy, r := p.Bounds()
	fill := padFill
	if p.Pressed() {
		fill = padHeld
	}
	vector.FillCircle(screen, float32(cx), float32(cy), float32(r), fill, true)
	vector.StrokeCircle(screen, float32(cx), float32(cy), float32(r), 3, padRim, true)

	a := p.Angle()
	ix := cx + math.Sin(a)*r*0.85
	iy := cy - math.Cos(a)*r*0.85
	vector.StrokeLine(screen, float32(cx), float32(cy), float32(ix), float32(iy), 4, padIndicator, true)
	vector.FillCircle(screen, float32(ix), float32(iy), 8, padIndicator, true)
}

// Layout implements ebiten.Game.
func (w *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return windowWidth, windowHeight
}
