package game

import (
	"math"

	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/datasync"
)

// Record and event naming shared by the arena and the pilots.
const (
	PlayerRecordPrefix = "player/"
	StatusEventPrefix  = "status/"
	PlayersList        = "players"
	StatusPattern      = "^status/.*"
)

// Control record keys.
const (
	KeyName           = "name"
	KeyVersion        = "v"
	KeyMoving         = "moving"
	KeyShooting       = "shooting"
	KeyBodyRotation   = "bodyRotation"
	KeyTurretRotation = "turretRotation"
)

// ControlStateVersion is published by pilots under KeyVersion.
const ControlStateVersion = 1

// PlayerRecord returns the record name holding a player's controls.
func PlayerRecord(name string) string { return PlayerRecordPrefix + name }

// StatusEvent returns the presence event a pilot subscribes to while online.
func StatusEvent(name string) string { return StatusEventPrefix + name }

// ControlState is the per-player input the pilot publishes. Rotations are
// radians with 0 pointing up and increasing clockwise.
type ControlState struct {
	Moving         bool
	Shooting       bool
	BodyRotation   float64
	TurretRotation float64
}

// ControlStateFrom decodes a record snapshot. Missing or mistyped fields
// fall back to their zero value; non-finite rotations read as 0.
func ControlStateFrom(f datasync.Fields) ControlState {
	return ControlState{
		Moving:         toBool(f[KeyMoving]),
		Shooting:       toBool(f[KeyShooting]),
		BodyRotation:   toFloat(f[KeyBodyRotation]),
		TurretRotation: toFloat(f[KeyTurretRotation]),
	}
}

// Fields encodes the state for a full record write.
func (c ControlState) Fields(name string) datasync.Fields {
	return datasync.Fields{
		KeyName:           name,
		KeyVersion:        ControlStateVersion,
		KeyMoving:         c.Moving,
		KeyShooting:       c.Shooting,
		KeyBodyRotation:   c.BodyRotation,
		KeyTurretRotation: c.TurretRotation,
	}
}

func toBool(v any) bool {
	b, _ := v.(bool)
	return b
}

// toFloat accepts every numeric type a decoder may hand back.
func toFloat(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
