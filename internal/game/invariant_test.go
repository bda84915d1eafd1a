package game

import (
	"fmt"
	"math"
	"testing"
)

// --- Invariant helpers ---

// checkPoolConservation verifies every allocated bullet is either in flight or
// parked on the free list, never both, and that free bullets are reset.
func checkPoolConservation(t *testing.T, p *BulletPool) {
	t.Helper()
	if p.ActiveCount()+p.FreeCount() != p.Allocated() {
		t.Fatalf("pool leak: active=%d free=%d allocated=%d", p.ActiveCount(), p.FreeCount(), p.Allocated())
	}
	seen := make(map[*Bullet]bool, p.Allocated())
	for _, b := range p.active {
		if !b.Active() {
			t.Fatalf("inactive bullet in the active list: %+v", *b)
		}
		seen[b] = true
	}
	for _, b := range p.free {
		if seen[b] {
			t.Fatalf("bullet both active and free: %+v", *b)
		}
		if b.Active() || b.X != BulletParkX || b.Y != BulletParkY || b.Owner != 0 {
			t.Fatalf("free bullet not parked: %+v", *b)
		}
	}
}

// checkBulletsInBounds verifies in-flight bullets lie inside the playfield.
func checkBulletsInBounds(t *testing.T, p *BulletPool, w, h float64) {
	t.Helper()
	for _, b := range p.Active() {
		if b.X < 0 || b.X > w || b.Y < 0 || b.Y > h {
			t.Fatalf("active bullet outside the arena at (%.1f,%.1f)", b.X, b.Y)
		}
	}
}

// checkShipBounds verifies speed and health stay in range and the roster has
// one ship per name.
func checkShipBounds(t *testing.T, ships []*Ship) {
	t.Helper()
	names := make(map[string]bool, len(ships))
	for _, s := range ships {
		if names[s.Name()] {
			t.Fatalf("duplicate ship for %s", s.Name())
		}
		names[s.Name()] = true
		if s.Speed() < 0 || s.Speed() > MaxSpeed {
			t.Fatalf("%s speed %.3f out of [0,%d]", s.Name(), s.Speed(), MaxSpeed)
		}
		if s.Health() < 0 || s.Health() > MaxHealth {
			t.Fatalf("%s health %d out of [0,%d]", s.Name(), s.Health(), MaxHealth)
		}
		if s.Destroyed() != (s.Health() == 0) {
			t.Fatalf("%s destroyed=%v at health %d", s.Name(), s.Destroyed(), s.Health())
		}
		if a := s.Alpha(); a < 0 || a > 1 || math.IsNaN(a) {
			t.Fatalf("%s alpha %v", s.Name(), a)
		}
	}
}

// checkAll runs every invariant against the harness's current state.
func checkAll(t *testing.T, ts *TestArena) {
	t.Helper()
	checkPoolConservation(t, ts.Arena.Bullets())
	checkBulletsInBounds(t, ts.Arena.Bullets(), ts.Width, ts.Height)
	checkShipBounds(t, ts.Arena.Ships())
	if got, want := len(ts.LastFrame.Ships), len(ts.Arena.Ships()); got != want {
		t.Fatalf("frame has %d ships, roster %d", got, want)
	}
}

// --- Invariant tests ---

func TestInvariant_PoolConservationUnderFire(t *testing.T) {
	opts := []TestArenaOption{WithSeed(3), WithInitialBullets(4)}
	for i := 0; i < 6; i++ {
		opts = append(opts, WithPilot(fmt.Sprintf("gunner%d", i), ControlState{
			Shooting:       true,
			Moving:         i%2 == 0,
			BodyRotation:   float64(i),
			TurretRotation: float64(i) * 1.3,
		}))
	}
	ts := NewTestArena(opts...)

	for tick := 0; tick < 400; tick++ {
		ts.RunTicks(1)
		checkAll(t, ts)
	}
	if ts.Arena.Bullets().Allocated() <= 4 {
		t.Fatal("six gunners should outgrow a pool of four")
	}
}

func TestInvariant_PoolNeverShrinks(t *testing.T) {
	ts := NewTestArena(WithInitialBullets(0), WithPilot("solo", ControlState{Shooting: true}))
	ts.RunTicks(120)
	peak := ts.Arena.Bullets().Allocated()
	ts.Pilot("solo").Set(ControlState{})
	ts.RunTicks(300)
	if ts.Arena.Bullets().Allocated() != peak {
		t.Fatalf("allocated %d after ceasefire, peak was %d", ts.Arena.Bullets().Allocated(), peak)
	}
	if ts.Arena.Bullets().ActiveCount() != 0 {
		t.Fatal("every bullet should have left the arena")
	}
	checkPoolConservation(t, ts.Arena.Bullets())
}

func TestInvariant_HealthOnlyDropsByOnePerHit(t *testing.T) {
	ts := duel(t, WithVerbose(true))
	target, _ := ts.Arena.Ship("target")
	prev := target.Health()
	for tick := 0; tick < 1000 && !target.Destroyed(); tick++ {
		ts.RunTicks(1)
		h := target.Health()
		if prev-h > 1 {
			// Shots leave one fire interval apart.
			t.Fatalf("health dropped %d in one tick", prev-h)
		}
		prev = h
		checkAll(t, ts)
	}
	if !target.Destroyed() {
		t.Fatalf("target survived\n%s", ts.Summary())
	}
	if ts.SimLog.CountCategory("move", "position") == 0 {
		t.Fatal("verbose run should log positions")
	}
}
