// Package pilot is the input side of the shooter: two directional pads that
// write a player's control record, the session that joins, leaves and rejoins
// the arena, a scripted bot, and the ebiten window that hosts the pads.
package pilot

import (
	"math"

	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/datasync"
	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/game"
)

// Kind selects which pair of control fields a pad writes.
type Kind int

const (
	// MovePad steers the hull: press sets moving, pointing sets bodyRotation.
	MovePad Kind = iota
	// AimPad aims the turret: press sets shooting, pointing sets turretRotation.
	AimPad
)

func (k Kind) String() string {
	if k == MovePad {
		return "move"
	}
	return "aim"
}

// activeKey is the boolean field a press toggles.
func (k Kind) activeKey() string {
	if k == MovePad {
		return game.KeyMoving
	}
	return game.KeyShooting
}

// rotationKey is the angle field pointing writes.
func (k Kind) rotationKey() string {
	if k == MovePad {
		return game.KeyBodyRotation
	}
	return game.KeyTurretRotation
}

// Pad is one round directional pad. Both pads of a session write to the same
// record; a pad without a record ignores input.
type Pad struct {
	kind   Kind
	record datasync.Record

	cx, cy, radius float64

	pressed bool
	angle   float64
}

// NewPad creates an unbound pad of the given kind.
func NewPad(kind Kind) *Pad {
	return &Pad{kind: kind}
}

func (p *Pad) Kind() Kind                       { return p.kind }
func (p *Pad) Pressed() bool                    { return p.pressed }
func (p *Pad) Angle() float64                   { return p.angle }
func (p *Pad) Record() datasync.Record          { return p.record }
func (p *Pad) SetRecord(r datasync.Record)      { p.record = r }
func (p *Pad) Bounds() (cx, cy, radius float64) { return p.cx, p.cy, p.radius }
func (p *Pad) SetSize(cx, cy, radius float64)   { p.cx, p.cy, p.radius = cx, cy, radius }

// Contains reports whether (px, py) lies on the pad.
func (p *Pad) Contains(px, py float64) bool {
	return math.Hypot(px-p.cx, py-p.cy) <= p.radius
}

// Press marks the pad as held.
func (p *Pad) Press() error {
	p.pressed = true
	return p.set(p.kind.activeKey(), true)
}

// Release marks the pad as let go.
func (p *Pad) Release() error {
	p.pressed = false
	return p.set(p.kind.activeKey(), false)
}

// Point aims the pad at (px, py). Zero radians is straight up; the angle grows
// clockwise in screen space, matching the arena's heading convention.
func (p *Pad) Point(px, py float64) error {
	p.angle = math.Pi/2 + math.Atan2(py-p.cy, px-p.cx)
	return p.set(p.kind.rotationKey(), p.angle)
}

func (p *Pad) set(field string, value any) error {
	if p.record == nil {
		return nil
	}
	return p.record.Set(field, value)
}
