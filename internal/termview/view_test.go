package termview

import (
	"math"
	"strings"
	"testing"

	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/game"
	"github.com/gdamore/tcell/v2"
	"golang.org/x/image/colornames"
)

func newScreen(t *testing.T, cols, rows int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	s.SetSize(cols, rows)
	t.Cleanup(s.Fini)
	return s
}

func runeAt(s tcell.Screen, x, y int) rune {
	r, _, _, _ := s.GetContent(x, y)
	return r
}

func rowText(s tcell.Screen, y, cols int) string {
	var b strings.Builder
	for x := 0; x < cols; x++ {
		b.WriteRune(runeAt(s, x, y))
	}
	return b.String()
}

func TestHeadingGlyph(t *testing.T) {
	cases := map[float64]rune{
		0:                '↑',
		math.Pi / 2:      '→',
		math.Pi:          '↓',
		-math.Pi / 2:     '←',
		3 * math.Pi / 2:  '←',
		math.Pi / 4:      '↗',
		2*math.Pi + 0.1:  '↑',
		-3 * math.Pi / 4: '↙',
	}
	for rot, want := range cases {
		if got := HeadingGlyph(rot); got != want {
			t.Errorf("HeadingGlyph(%v) = %q, want %q", rot, got, want)
		}
	}
}

func TestView_RenderShipsBulletsAndStatus(t *testing.T) {
	s := newScreen(t, 40, 11)
	v := New(s)
	v.SetStatus("q quits")
	v.Render(game.Frame{
		Tick:   7,
		Width:  400,
		Height: 100,
		Ships: []game.ShipView{{
			Name:       "ace",
			X:          200,
			Y:          50,
			Rotation:   math.Pi / 2,
			Color:      colornames.Lime,
			LabelColor: colornames.Lime,
			Alpha:      1,
		}},
		Bullets: []game.BulletView{{X: 10, Y: 10}},
	})

	// 40 columns over 400px, 10 field rows over 100px.
	if got := runeAt(s, 20, 5); got != '→' {
		t.Fatalf("ship cell = %q, want →", got)
	}
	if got := rowText(s, 6, 40); !strings.Contains(got, "ace") {
		t.Fatalf("label row = %q", got)
	}
	if got := runeAt(s, 1, 1); got != bulletGlyph {
		t.Fatalf("bullet cell = %q", got)
	}
	status := rowText(s, 10, 40)
	if !strings.Contains(status, "T=7") || !strings.Contains(status, "ships=1") || !strings.Contains(status, "q quits") {
		t.Fatalf("status = %q", status)
	}
	if v.Frames() != 1 {
		t.Fatalf("frames = %d", v.Frames())
	}
}

func TestView_ExplosionAtWreck(t *testing.T) {
	s := newScreen(t, 40, 11)
	New(s).Render(game.Frame{
		Width:  400,
		Height: 100,
		Ships: []game.ShipView{{
			Name:           "wreck",
			X:              -50, // a destroyed ship is drawn where it exploded
			Y:              -50,
			Destroyed:      true,
			ExplosionX:     100,
			ExplosionY:     30,
			ExplosionFrame: 0,
		}},
	})
	if got := runeAt(s, 10, 3); got != '*' {
		t.Fatalf("explosion cell = %q, want *", got)
	}
	if strings.Contains(rowText(s, 4, 40), "wreck") {
		t.Fatal("exploding ships are not labelled")
	}
}

func TestView_OffscreenSkipped(t *testing.T) {
	s := newScreen(t, 20, 6)
	New(s).Render(game.Frame{
		Width:   100,
		Height:  100,
		Ships:   []game.ShipView{{Name: "gone", X: 500, Y: 500}},
		Bullets: []game.BulletView{{X: -5, Y: 50}},
	})
	for y := 0; y < 5; y++ {
		if row := strings.TrimSpace(rowText(s, y, 20)); row != "" {
			t.Fatalf("row %d should be empty, got %q", y, row)
		}
	}
}
