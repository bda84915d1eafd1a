package game

import "image/color"

// ShipView is the render-side copy of a ship.
type ShipView struct {
	ID             ShipID
	Name           string
	X, Y           float64
	Rotation       float64
	TurretRotation float64 // relative to Rotation
	Speed          float64
	Health         int
	Destroyed      bool
	Flashing       bool
	Color          color.RGBA // tint, or the flash colour
	LabelColor     color.RGBA
	Alpha          float64
	ExplosionX     float64
	ExplosionY     float64
	ExplosionFrame int
}

// BulletView is the render-side copy of a bullet in flight.
type BulletView struct {
	X, Y     float64
	Rotation float64
}

// Frame is everything a renderer needs to draw one arena frame.
type Frame struct {
	Tick    int
	Time    float64 // ms
	Width   float64
	Height  float64
	Ships   []ShipView
	Bullets []BulletView
}

// Renderer receives a Frame at the end of every arena tick.
type Renderer interface {
	Render(f Frame)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(Frame)

func (fn RendererFunc) Render(f Frame) { fn(f) }
