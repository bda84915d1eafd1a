package game

import (
	"image/color"
	"math"

	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/datasync"
)

// --- Ship constants ---

const (
	MaxSpeed             = 5    // px per frame
	MaxHealth            = 10   // hits a ship takes before it explodes
	Acceleration         = 0.01 // speed gained (or lost) per elapsed ms
	FireInterval         = 100  // ms between shots
	BarrelLength         = 27   // px from ship centre to muzzle
	HitHighlightDuration = 70   // ms a hit ship flashes red

	// Body hit box, centred on the ship and rotated with the hull.
	BodyWidth  = 36
	BodyHeight = 48

	ExplosionFrames  = 12
	ExplosionFrameMs = 40

	// LabelOffset is how far below the ship its name is drawn.
	LabelOffset = 45
)

// ShipID identifies a ship for the lifetime of an arena. IDs are never reused,
// so a stale ID simply stops matching.
type ShipID uint64

// Ship is one player's craft. Its controls are read from the player's record
// every frame; everything else is local simulation state.
type Ship struct {
	id     ShipID
	name   string
	record datasync.Record
	pool   *BulletPool

	x, y           float64
	rotation       float64 // hull, world space
	turretRotation float64 // relative to the hull
	speed          float64
	health         int

	now        float64 // time of the last Update, stamps hit flashes
	lastFire   float64
	flashing   bool
	flashStart float64
	tint       color.RGBA
	labelColor color.RGBA
	shotsFired int

	destroyed      bool
	explosionX     float64
	explosionY     float64
	explosionMs    float64
	explosionFrame int
	alpha          float64
	finished       bool
	onFinished     func(*Ship)
}

// NewShip creates a ship at (x, y). onFinished is called exactly once, when
// the explosion of a destroyed ship reaches its last frame.
func NewShip(id ShipID, name string, x, y float64, record datasync.Record, pool *BulletPool, onFinished func(*Ship)) *Ship {
	return &Ship{
		id:         id,
		name:       name,
		record:     record,
		pool:       pool,
		x:          x,
		y:          y,
		health:     MaxHealth,
		tint:       TintFor(name),
		labelColor: fullHealthLabel,
		alpha:      1,
		onFinished: onFinished,
	}
}

// Update advances the ship by one frame. elapsed is the time since the previous
// frame and now the current frame time, both in milliseconds.
func (s *Ship) Update(elapsed, now float64) {
	s.now = now

	if !s.destroyed && s.record != nil && s.record.IsReady() {
		s.steer(ControlStateFrom(s.record.Get()), elapsed, now)
	}

	if s.flashing && now > s.flashStart+HitHighlightDuration {
		s.flashing = false
	}

	if s.destroyed {
		s.advanceExplosion(elapsed)
	}
}

func (s *Ship) steer(c ControlState, elapsed, now float64) {
	s.turretRotation = c.TurretRotation - c.BodyRotation
	s.rotation = c.BodyRotation

	dir := -1.0
	if c.Moving {
		dir = 1.0
	}
	s.speed += elapsed * Acceleration * dir
	if s.speed < 0 {
		s.speed = 0
	}
	if s.speed > MaxSpeed {
		s.speed = MaxSpeed
	}

	s.x += math.Sin(s.rotation) * s.speed
	s.y -= math.Cos(s.rotation) * s.speed

	if c.Shooting && now > s.lastFire+FireInterval {
		a := c.TurretRotation
		mx := s.x + math.Sin(a)*BarrelLength
		my := s.y - math.Cos(a)*BarrelLength
		if s.pool != nil {
			s.pool.Spawn(mx, my, a, s.id)
		}
		s.shotsFired++
		s.lastFire = now
	}
}

func (s *Ship) advanceExplosion(elapsed float64) {
	s.explosionMs += elapsed
	frame := int(s.explosionMs / ExplosionFrameMs)
	if frame > ExplosionFrames-1 {
		frame = ExplosionFrames - 1
	}
	s.explosionFrame = frame
	s.alpha = 1 - float64(frame+1)/ExplosionFrames

	if frame == ExplosionFrames-1 && !s.finished {
		s.finished = true
		if s.onFinished != nil {
			s.onFinished(s)
		}
	}
}

// CheckHit tests a bullet position against the rotated body box. On a hit the
// ship flashes, loses one health point and, at zero, starts exploding.
func (s *Ship) CheckHit(x, y float64) bool {
	if s.destroyed || !s.contains(x, y) {
		return false
	}

	s.flashing = true
	s.flashStart = s.now
	s.health--

	if s.health <= 0 {
		s.health = 0
		s.destroyed = true
		s.explosionX = s.x
		s.explosionY = s.y
		return true
	}
	s.labelColor = LabelColor(s.health)
	return true
}

// contains maps (x, y) into hull space and tests it against the body box.
func (s *Ship) contains(x, y float64) bool {
	dx := x - s.x
	dy := y - s.y
	sin, cos := math.Sincos(s.rotation)
	lx := dx*cos + dy*sin
	ly := -dx*sin + dy*cos
	return math.Abs(lx) <= BodyWidth/2 && math.Abs(ly) <= BodyHeight/2
}

// --- Accessors ---

func (s *Ship) ID() ShipID                   { return s.id }
func (s *Ship) Name() string                 { return s.name }
func (s *Ship) Record() datasync.Record      { return s.record }
func (s *Ship) Position() (float64, float64) { return s.x, s.y }
func (s *Ship) Rotation() float64            { return s.rotation }
func (s *Ship) TurretRotation() float64      { return s.turretRotation }
func (s *Ship) Speed() float64               { return s.speed }
func (s *Ship) Health() int                  { return s.health }
func (s *Ship) Destroyed() bool              { return s.destroyed }
func (s *Ship) Flashing() bool               { return s.flashing }
func (s *Ship) Alpha() float64               { return s.alpha }
func (s *Ship) ExplosionFrame() int          { return s.explosionFrame }
func (s *Ship) ShotsFired() int              { return s.shotsFired }
func (s *Ship) Tint() color.RGBA             { return s.tint }
func (s *Ship) LabelColor() color.RGBA       { return s.labelColor }

// ExplosionPosition is where the ship was when it was destroyed.
func (s *Ship) ExplosionPosition() (float64, float64) { return s.explosionX, s.explosionY }

// BodyColor is the tint, or red while the hit flash is active.
func (s *Ship) BodyColor() color.RGBA {
	if s.flashing {
		return hitFlashColor
	}
	return s.tint
}

// View captures the ship for rendering.
func (s *Ship) View() ShipView {
	return ShipView{
		ID:             s.id,
		Name:           s.name,
		X:              s.x,
		Y:              s.y,
		Rotation:       s.rotation,
		TurretRotation: s.turretRotation,
		Speed:          s.speed,
		Health:         s.health,
		Destroyed:      s.destroyed,
		Flashing:       s.flashing,
		Color:          s.BodyColor(),
		LabelColor:     s.labelColor,
		Alpha:          s.alpha,
		ExplosionX:     s.explosionX,
		ExplosionY:     s.explosionY,
		ExplosionFrame: s.explosionFrame,
	}
}
