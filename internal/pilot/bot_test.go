package pilot

import (
	"testing"

	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/datasync"
	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/game"
)

func TestBot_DrivesControls(t *testing.T) {
	hub := datasync.NewHub()
	a := arenaOn(t, hub, "presence")
	s := NewSession(hub.Connect(), Announce{Presence: true})
	_ = s.Join("bot")
	b := NewBot(s, 9)

	moved, fired := false, false
	for now := 0.0; now < 10000; now += 16 {
		if err := b.Step(now); err != nil {
			t.Fatalf("Step: %v", err)
		}
		a.Tick(now)
		ship, ok := a.Ship("bot")
		if !ok {
			t.Fatal("bot ship vanished")
		}
		moved = moved || ship.Speed() > 0
		fired = fired || ship.ShotsFired() > 0
	}
	if !moved || !fired {
		t.Fatalf("bot should move and shoot: moved=%v fired=%v", moved, fired)
	}
}

func TestBot_Deterministic(t *testing.T) {
	run := func() game.ControlState {
		c := datasync.NewHub().Connect()
		s := NewSession(c, Announce{})
		_ = s.Join("bot")
		b := NewBot(s, 5)
		for now := 0.0; now < 3000; now += 16 {
			_ = b.Step(now)
		}
		return game.ControlStateFrom(c.Record(game.PlayerRecord("bot")).Get())
	}
	if first, second := run(), run(); first != second {
		t.Fatalf("same seed diverged: %+v vs %+v", first, second)
	}
}

func TestBot_RejoinsAfterGameOver(t *testing.T) {
	hub := datasync.NewHub()
	a := arenaOn(t, hub, "presence")
	s := NewSession(hub.Connect(), Announce{Presence: true})
	_ = s.Join("bot")
	b := NewBot(s, 1)
	b.RejoinAfter = 500

	destroy(t, a, "bot")
	if !s.GameOver() {
		t.Fatal("expected game over")
	}
	now := a.Now()
	_ = b.Step(now)
	_ = b.Step(now + 499)
	if s.Joined() {
		t.Fatal("rejoined before the delay")
	}
	if err := b.Step(now + 500); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !s.Joined() {
		t.Fatal("bot should rejoin after the delay")
	}
	if _, ok := a.Ship("bot"); !ok {
		t.Fatal("rejoined bot has no ship")
	}
}

func TestBot_NoRejoinWhenDisabled(t *testing.T) {
	hub := datasync.NewHub()
	a := arenaOn(t, hub, "presence")
	s := NewSession(hub.Connect(), Announce{Presence: true})
	_ = s.Join("bot")
	b := NewBot(s, 1)
	b.RejoinAfter = -1

	destroy(t, a, "bot")
	_ = b.Step(a.Now() + 60000)
	if s.Joined() {
		t.Fatal("bot rejoined with rejoin disabled")
	}
}
