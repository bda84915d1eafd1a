package game

import (
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// hullOutline is the ship body in hull space, nose up, inside the hit box.
var hullOutline = [...][2]float64{
	{0, -BodyHeight / 2},
	{BodyWidth / 2, BodyHeight/2 - 4},
	{BodyWidth / 4, BodyHeight / 2},
	{0, BodyHeight/2 - 10},
	{-BodyWidth / 4, BodyHeight / 2},
	{-BodyWidth / 2, BodyHeight/2 - 4},
}

var (
	bulletColor    = color.RGBA{R: 255, G: 240, B: 160, A: 255}
	bulletTail     = color.RGBA{R: 255, G: 200, B: 80, A: 120}
	explosionCore  = color.RGBA{R: 255, G: 170, B: 40, A: 255}
	explosionRing  = color.RGBA{R: 255, G: 90, B: 20, A: 255}
	turretHubColor = color.RGBA{R: 20, G: 20, B: 30, A: 255}
)

// toWorld rotates a hull-space point by rot and translates it to (x, y).
func toWorld(px, py, x, y, rot float64) (float32, float32) {
	sin, cos := math.Sincos(rot)
	return float32(x + px*cos - py*sin), float32(y + px*sin + py*cos)
}

func scaleAlpha(c color.RGBA, a float64) color.RGBA {
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	return color.RGBA{
		R: uint8(float64(c.R) * a),
		G: uint8(float64(c.G) * a),
		B: uint8(float64(c.B) * a),
		A: uint8(float64(c.A) * a),
	}
}

func drawShip(screen *ebiten.Image, s ShipView) {
	if s.Destroyed {
		drawExplosion(screen, s)
	}
	if s.Alpha <= 0 {
		return
	}

	var path vector.Path
	for i, p := range hullOutline {
		wx, wy := toWorld(p[0], p[1], s.X, s.Y, s.Rotation)
		if i == 0 {
			path.MoveTo(wx, wy)
		} else {
			path.LineTo(wx, wy)
		}
	}
	path.Close()
	opts := &vector.DrawPathOptions{AntiAlias: true}
	opts.ColorScale.ScaleWithColor(s.Color)
	opts.ColorScale.ScaleAlpha(float32(s.Alpha))
	vector.FillPath(screen, &path, &vector.FillOptions{}, opts)

	// Turret: the barrel points along the world turret angle.
	turret := s.Rotation + s.TurretRotation
	bx := s.X + math.Sin(turret)*BarrelLength
	by := s.Y - math.Cos(turret)*BarrelLength
	c := scaleAlpha(s.Color, s.Alpha)
	vector.StrokeLine(screen, float32(s.X), float32(s.Y), float32(bx), float32(by), 4, c, true)
	vector.FillCircle(screen, float32(s.X), float32(s.Y), 7, scaleAlpha(turretHubColor, s.Alpha), true)
	vector.StrokeCircle(screen, float32(s.X), float32(s.Y), 7, 2, c, true)

	drawLabel(screen, s)
}

// drawLabel centres the player name LabelOffset pixels below the ship.
func drawLabel(screen *ebiten.Image, s ShipView) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, s.Name).Ceil()
	x := int(s.X) - w/2
	y := int(s.Y) + LabelOffset + face.Ascent/2
	text.Draw(screen, s.Name, face, x, y, scaleAlpha(s.LabelColor, s.Alpha))
}

func drawExplosion(screen *ebiten.Image, s ShipView) {
	progress := float64(s.ExplosionFrame+1) / ExplosionFrames
	fade := 1 - progress
	ex, ey := float32(s.ExplosionX), float32(s.ExplosionY)
	r := float32(10 + progress*50)
	vector.FillCircle(screen, ex, ey, r*0.6, scaleAlpha(explosionCore, fade), true)
	vector.StrokeCircle(screen, ex, ey, r, 3, scaleAlpha(explosionRing, fade), true)
	vector.StrokeCircle(screen, ex, ey, r*0.75, 1.5, scaleAlpha(explosionCore, fade*0.6), true)
}

func drawBullet(screen *ebiten.Image, b BulletView) {
	tx := b.X - math.Sin(b.Rotation)*BulletSpeed
	ty := b.Y + math.Cos(b.Rotation)*BulletSpeed
	vector.StrokeLine(screen, float32(tx), float32(ty), float32(b.X), float32(b.Y), 1.5, bulletTail, true)
	vector.FillCircle(screen, float32(b.X), float32(b.Y), 2.5, bulletColor, true)
}

func drawGrid(screen *ebiten.Image, w, h, spacing int, c color.Color) {
	for x := 0; x <= w; x += spacing {
		vector.StrokeLine(screen, float32(x), 0, float32(x), float32(h), 1, c, false)
	}
	for y := 0; y <= h; y += spacing {
		vector.StrokeLine(screen, 0, float32(y), float32(w), float32(y), 1, c, false)
	}
}
