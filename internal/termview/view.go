// Package termview draws arena frames into a terminal: ships as heading
// arrows in their tint with the name underneath, bullets as dots, and a
// status line along the bottom row.
package termview

import (
	"fmt"
	"image/color"
	"math"

	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/game"
	"github.com/gdamore/tcell/v2"
)

// headingGlyphs are indexed by heading in 45° steps, clockwise from up.
var headingGlyphs = [8]rune{'↑', '↗', '→', '↘', '↓', '↙', '←', '↖'}

// explosionGlyphs run from the first explosion frame to the last.
var explosionGlyphs = []rune{'*', '*', '✶', '✶', '✺', '✺', '+', '+', '·', '·', '.', ' '}

const bulletGlyph = '•'

var (
	statusStyle = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorSilver)
	bulletStyle = tcell.StyleDefault.Foreground(tcell.ColorYellow)
)

// View is a game.Renderer backed by a tcell screen. It must be used from
// the goroutine that ticks the arena.
type View struct {
	screen tcell.Screen
	status string
	frames int
}

var _ game.Renderer = (*View)(nil)

// New wraps an initialised screen.
func New(screen tcell.Screen) *View {
	return &View{screen: screen}
}

// SetStatus sets extra text shown on the status line.
func (v *View) SetStatus(s string) { v.status = s }

// Frames returns how many frames have been drawn.
func (v *View) Frames() int { return v.frames }

// Render draws f and shows the screen.
func (v *View) Render(f game.Frame) {
	v.frames++
	s := v.screen
	s.Clear()
	cols, rows := s.Size()
	field := rows - 1
	if cols <= 0 || field <= 0 || f.Width <= 0 || f.Height <= 0 {
		s.Show()
		return
	}
	cell := func(x, y float64) (int, int, bool) {
		cx := int(x / f.Width * float64(cols))
		cy := int(y / f.Height * float64(field))
		return cx, cy, cx >= 0 && cx < cols && cy >= 0 && cy < field
	}

	for _, b := range f.Bullets {
		if cx, cy, ok := cell(b.X, b.Y); ok {
			s.SetContent(cx, cy, bulletGlyph, nil, bulletStyle)
		}
	}

	for _, sv := range f.Ships {
		x, y := sv.X, sv.Y
		glyph := HeadingGlyph(sv.Rotation)
		style := tcell.StyleDefault.Foreground(rgb(sv.Color))
		if sv.Destroyed {
			x, y = sv.ExplosionX, sv.ExplosionY
			glyph = explosionGlyphs[clampFrame(sv.ExplosionFrame)]
			style = style.Bold(true)
		}
		cx, cy, ok := cell(x, y)
		if !ok {
			continue
		}
		s.SetContent(cx, cy, glyph, nil, style)
		if !sv.Destroyed && cy+1 < field {
			putString(s, cx-len([]rune(sv.Name))/2, cy+1, cols, sv.Name, tcell.StyleDefault.Foreground(rgb(sv.LabelColor)))
		}
	}

	line := fmt.Sprintf(" T=%d  ships=%d  bullets=%d", f.Tick, len(f.Ships), len(f.Bullets))
	if v.status != "" {
		line += "  " + v.status
	}
	for x := 0; x < cols; x++ {
		s.SetContent(x, rows-1, ' ', nil, statusStyle)
	}
	putString(s, 0, rows-1, cols, line, statusStyle)
	s.Show()
}

// HeadingGlyph returns the arrow closest to rotation (0 = up, clockwise).
func HeadingGlyph(rotation float64) rune {
	r := math.Mod(rotation, 2*math.Pi)
	if r < 0 {
		r += 2 * math.Pi
	}
	i := int(math.Round(r/(math.Pi/4))) % len(headingGlyphs)
	return headingGlyphs[i]
}

func clampFrame(frame int) int {
	if frame < 0 {
		return 0
	}
	if frame >= len(explosionGlyphs) {
		return len(explosionGlyphs) - 1
	}
	return frame
}

func rgb(c color.RGBA) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

func putString(s tcell.Screen, x, y, cols int, str string, style tcell.Style) {
	for _, r := range str {
		if x >= cols {
			return
		}
		if x >= 0 {
			s.SetContent(x, y, r, nil, style)
		}
		x++
	}
}
