package game

import (
	"fmt"
	"math"
	"testing"

	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/datasync"
)

func TestArena_AddPlayerSpawnsInsideCentralArea(t *testing.T) {
	cfg := ArenaConfig{Width: 1000, Height: 500, InitialBullets: 0, Seed: 7}
	a := NewArena(cfg, nil)
	for i := 0; i < 200; i++ {
		name := fmt.Sprintf("p%03d", i)
		if !a.AddPlayer(name) {
			t.Fatalf("AddPlayer(%s) = false", name)
		}
		s, _ := a.Ship(name)
		x, y := s.Position()
		if x < 100 || x > 900 || y < 50 || y > 450 {
			t.Fatalf("%s spawned at (%.1f,%.1f), outside the central 80%%", name, x, y)
		}
	}
}

func TestArena_AddPlayerIdempotent(t *testing.T) {
	a := NewArena(DefaultArenaConfig(), nil)
	if !a.AddPlayer("alice") {
		t.Fatal("first AddPlayer should succeed")
	}
	first, _ := a.Ship("alice")
	if a.AddPlayer("alice") {
		t.Fatal("second AddPlayer should be ignored")
	}
	if len(a.Ships()) != 1 {
		t.Fatalf("roster size = %d, want 1", len(a.Ships()))
	}
	if s, _ := a.Ship("alice"); s != first {
		t.Fatal("the first ship must be kept")
	}
	if a.AddPlayer("") {
		t.Fatal("empty names are rejected")
	}
}

func TestArena_RemovePlayerIdempotentAndDeletesRecord(t *testing.T) {
	hub := datasync.NewHub()
	pilot := hub.Connect()
	_ = pilot.Record(PlayerRecord("alice")).SetAll(ControlState{}.Fields("alice"))

	a := NewArena(DefaultArenaConfig(), hub.Connect())
	a.AddPlayer("alice")
	if !a.RemovePlayer("alice") {
		t.Fatal("RemovePlayer should report removal")
	}
	if _, ok := a.Ship("alice"); ok {
		t.Fatal("ship still in roster")
	}
	if len(hub.RecordNames()) != 0 {
		t.Fatalf("record not deleted: %v", hub.RecordNames())
	}
	if a.RemovePlayer("alice") {
		t.Fatal("second RemovePlayer should be a no-op")
	}
	if a.RemovePlayer("nobody") {
		t.Fatal("removing an unknown player should be a no-op")
	}
}

func TestArena_FirstTickHasZeroElapsed(t *testing.T) {
	ts := NewTestArena(WithFrameMs(16), WithPilot("alice", ControlState{Moving: true}))
	ts.RunTicks(1)
	s, _ := ts.Arena.Ship("alice")
	if s.Speed() != 0 {
		t.Fatalf("speed after first tick = %v, want 0", s.Speed())
	}
	ts.RunTicks(1)
	if got, want := s.Speed(), 16*Acceleration; got < want-1e-9 || got > want+1e-9 {
		t.Fatalf("speed after second tick = %v, want %v", got, want)
	}
}

func TestArena_PresenceJoinAndLeave(t *testing.T) {
	ts := NewTestArena(WithPilot("alice", ControlState{}), WithPilot("bob", ControlState{}))
	if len(ts.Arena.Ships()) != 2 {
		t.Fatalf("roster size = %d, want 2", len(ts.Arena.Ships()))
	}

	ts.Pilot("bob").Offline()
	if _, ok := ts.Arena.Ship("bob"); ok {
		t.Fatal("offline pilot should be removed immediately")
	}
	if !ts.SimLog.HasEntry("roster", "leave", "offline") {
		t.Fatal("expected a leave entry")
	}
	for _, name := range ts.Hub.RecordNames() {
		if name == PlayerRecord("bob") {
			t.Fatal("offline pilot's record should be deleted")
		}
	}
}

func TestArena_DuplicatePresenceIsOneShip(t *testing.T) {
	ts := NewTestArena(WithPilot("alice", ControlState{}))
	// A second tab for the same pilot.
	second := ts.Hub.Connect()
	_ = second.Subscribe(StatusEvent("alice"))
	if len(ts.Arena.Ships()) != 1 {
		t.Fatalf("roster size = %d, want 1", len(ts.Arena.Ships()))
	}
	// The first tab closes; the second still holds the subscription.
	ts.Pilot("alice").Offline()
	if _, ok := ts.Arena.Ship("alice"); !ok {
		t.Fatal("ship should survive while any subscriber remains")
	}
}

func TestArena_RendererGetsFrameEveryTick(t *testing.T) {
	ts := NewTestArena(WithPilot("alice", ControlState{Shooting: true}))
	ts.RunTicks(20)
	if ts.Frames != 20 {
		t.Fatalf("frames = %d, want 20", ts.Frames)
	}
	f := ts.LastFrame
	if f.Tick != 20 || len(f.Ships) != 1 || f.Ships[0].Name != "alice" {
		t.Fatalf("unexpected frame: tick=%d ships=%d", f.Tick, len(f.Ships))
	}
	if len(f.Bullets) != ts.Arena.Bullets().ActiveCount() {
		t.Fatalf("frame bullets = %d, pool active = %d", len(f.Bullets), ts.Arena.Bullets().ActiveCount())
	}
	if f.Width != ts.Width || f.Height != ts.Height {
		t.Fatalf("frame size = %vx%v", f.Width, f.Height)
	}
}

// duel places shooter below target, turret pointing straight up.
func duel(t *testing.T, opts ...TestArenaOption) *TestArena {
	t.Helper()
	opts = append(opts,
		WithPilot("shooter", ControlState{Shooting: true}),
		WithPilot("target", ControlState{}),
	)
	ts := NewTestArena(opts...)
	ts.Place("shooter", 640, 600)
	ts.Place("target", 640, 400)
	return ts
}

func TestArena_DestructionDefersRemovalUntilExplosionEnds(t *testing.T) {
	ts := duel(t)
	target, _ := ts.Arena.Ship("target")

	destroyedAt := ts.RunUntil(func(ts *TestArena) bool { return target.Destroyed() }, 2000)
	if destroyedAt < 0 {
		t.Fatalf("target never destroyed\n%s", ts.Summary())
	}
	if _, ok := ts.Arena.Ship("target"); !ok {
		t.Fatal("destroyed ship must stay in the roster while exploding")
	}
	if ts.Pilot("target").Deleted() {
		t.Fatal("record deleted before the explosion finished")
	}

	removedAt := ts.RunUntil(func(ts *TestArena) bool {
		_, ok := ts.Arena.Ship("target")
		return !ok
	}, 200)
	if removedAt < 0 {
		t.Fatal("exploded ship never removed")
	}
	frames := removedAt - destroyedAt
	if minFrames := int(ExplosionFrames*ExplosionFrameMs/ts.FrameMs) - 2; frames < minFrames {
		t.Fatalf("removed %d frames after destruction, want at least %d", frames, minFrames)
	}

	if !ts.Pilot("target").Deleted() {
		t.Fatal("record should be deleted once the explosion finishes")
	}
	if ts.Pilot("target").IsOnline() {
		t.Fatal("pilot should go offline on game over")
	}
	if ts.SimLog.CountCategory("combat", "hit") != MaxHealth {
		t.Fatalf("hits = %d, want %d", ts.SimLog.CountCategory("combat", "hit"), MaxHealth)
	}
	if !ts.SimLog.HasEntry("combat", "destroyed", "by shooter") {
		t.Fatal("expected kill credit for shooter")
	}
	if !ts.SimLog.HasEntry("roster", "leave", "destroyed") {
		t.Fatal("expected a destroyed leave entry")
	}
	if n := ts.SimLog.CountCategory("roster", "leave"); n != 1 {
		t.Fatalf("leave entries = %d, want exactly 1", n)
	}
	for _, sv := range ts.LastFrame.Ships {
		if sv.Name == "target" {
			t.Fatal("removed ship still rendered")
		}
	}

	st, _ := ts.Stats.Get("shooter")
	if st.Kills != 1 || st.Hits != MaxHealth {
		t.Fatalf("shooter stats = %+v", st)
	}
}

func TestArena_RejoinAfterGameOver(t *testing.T) {
	ts := duel(t)
	ts.RunUntil(func(ts *TestArena) bool { return ts.Pilot("target").Deleted() }, 3000)

	old := ts.SimLog.CountCategory("roster", "join")
	ts.Pilot("target").Set(ControlState{})
	ts.Pilot("target").Online()
	s, ok := ts.Arena.Ship("target")
	if !ok {
		t.Fatal("rejoined pilot has no ship")
	}
	if s.Health() != MaxHealth || s.Destroyed() {
		t.Fatal("rejoined ship should start fresh")
	}
	if ts.SimLog.CountCategory("roster", "join") != old+1 {
		t.Fatal("expected a new join entry")
	}
	ts.RunTicks(5)
	if !s.Record().IsReady() {
		t.Fatal("rejoined ship should read the recreated record")
	}
}

func TestArena_OfflineDuringExplosion(t *testing.T) {
	ts := duel(t)
	target, _ := ts.Arena.Ship("target")
	ts.RunUntil(func(*TestArena) bool { return target.Destroyed() }, 2000)

	ts.Pilot("target").Offline()
	if _, ok := ts.Arena.Ship("target"); ok {
		t.Fatal("offline removes immediately, even mid-explosion")
	}
	ts.RunTicks(60)
	if n := ts.SimLog.CountCategory("roster", "leave"); n != 1 {
		t.Fatalf("leave entries = %d, want 1", n)
	}
}

type stubMembership struct {
	join, leave func(string)
	stopped     int
}

func (m *stubMembership) Start(join, leave func(string)) error {
	m.join, m.leave = join, leave
	return nil
}

func (m *stubMembership) Stop() { m.stopped++ }

func TestArena_AttachRoutesAndReplaces(t *testing.T) {
	a := NewArena(DefaultArenaConfig(), nil)
	first := &stubMembership{}
	if err := a.Attach(first); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	first.join("alice")
	if _, ok := a.Ship("alice"); !ok {
		t.Fatal("join not routed to AddPlayer")
	}
	first.leave("alice")
	if _, ok := a.Ship("alice"); ok {
		t.Fatal("leave not routed to RemovePlayer")
	}

	second := &stubMembership{}
	_ = a.Attach(second)
	if first.stopped != 1 {
		t.Fatal("previous source should be stopped")
	}
	a.Detach()
	if second.stopped != 1 {
		t.Fatal("Detach should stop the source")
	}
}

func TestArena_BulletsTestAgainstThisFramesPositions(t *testing.T) {
	ts := NewTestArena(WithPilot("runner", ControlState{Moving: true, BodyRotation: math.Pi / 2}))
	s := ts.Place("runner", 400, 360)
	ts.RunTicks(60)
	if s.Speed() != MaxSpeed {
		t.Fatalf("runner speed = %v, want %v", s.Speed(), MaxSpeed)
	}

	// Facing east the hull spans ±BodyHeight/2 in x. The bullet lands 3px
	// past the nose as it is now, inside the nose once the runner has moved.
	x0, y0 := s.Position()
	bx := x0 + BodyHeight/2 + 3
	if s.contains(bx, y0) {
		t.Fatal("bullet would hit the ship where it was last frame")
	}
	ts.Arena.Bullets().Spawn(bx, y0+BulletSpeed, 0, 0)

	ts.RunTicks(1)
	if s.Health() != MaxHealth-1 {
		t.Fatalf("health = %d, want %d: bullets must be tested after ships move", s.Health(), MaxHealth-1)
	}
	if ts.Arena.Bullets().ActiveCount() != 0 {
		t.Fatalf("the hit bullet should be recycled, %d active", ts.Arena.Bullets().ActiveCount())
	}
}
