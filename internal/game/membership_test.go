package game

import (
	"reflect"
	"testing"

	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/datasync"
)

type rosterLog struct {
	joins, leaves []string
}

func (r *rosterLog) join(name string)  { r.joins = append(r.joins, name) }
func (r *rosterLog) leave(name string) { r.leaves = append(r.leaves, name) }

func TestPresenceMembership_JoinAndLeave(t *testing.T) {
	hub := datasync.NewHub()
	var got rosterLog
	m := &PresenceMembership{Events: hub.Connect().Events()}
	if err := m.Start(got.join, got.leave); err != nil {
		t.Fatalf("Start: %v", err)
	}

	pilot := hub.Connect()
	_ = pilot.Subscribe(StatusEvent("alice"))
	_ = pilot.Subscribe("chat/alice") // does not match the pattern
	_ = pilot.Unsubscribe(StatusEvent("alice"))

	if !reflect.DeepEqual(got.joins, []string{"alice"}) || !reflect.DeepEqual(got.leaves, []string{"alice"}) {
		t.Fatalf("joins=%v leaves=%v", got.joins, got.leaves)
	}
}

func TestPresenceMembership_ReportsAlreadyOnline(t *testing.T) {
	hub := datasync.NewHub()
	_ = hub.Connect().Subscribe(StatusEvent("bob"))
	_ = hub.Connect().Subscribe(StatusEvent("alice"))

	var got rosterLog
	m := &PresenceMembership{Events: hub.Connect().Events()}
	_ = m.Start(got.join, got.leave)
	if !reflect.DeepEqual(got.joins, []string{"alice", "bob"}) {
		t.Fatalf("joins = %v, want [alice bob]", got.joins)
	}
}

func TestPresenceMembership_StopUnlistens(t *testing.T) {
	hub := datasync.NewHub()
	var got rosterLog
	m := &PresenceMembership{Events: hub.Connect().Events()}
	_ = m.Start(got.join, got.leave)
	m.Stop()
	m.Stop()

	_ = hub.Connect().Subscribe(StatusEvent("carol"))
	if len(got.joins) != 0 {
		t.Fatalf("joins after Stop = %v", got.joins)
	}
}

func TestPresenceMembership_NoTransport(t *testing.T) {
	m := &PresenceMembership{}
	if err := m.Start(func(string) {}, func(string) {}); err == nil {
		t.Fatal("expected an error without events")
	}
	m.Stop()
}

func TestListMembership_InitialEntriesAndUpdates(t *testing.T) {
	hub := datasync.NewHub()
	pilot := hub.Connect()
	_ = pilot.List(PlayersList).AddEntry("alice")

	var got rosterLog
	m := &ListMembership{Lists: hub.Connect()}
	if err := m.Start(got.join, got.leave); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !reflect.DeepEqual(got.joins, []string{"alice"}) {
		t.Fatalf("initial joins = %v", got.joins)
	}

	_ = pilot.List(PlayersList).AddEntry("bob")
	_ = pilot.List(PlayersList).RemoveEntry("alice")
	if !reflect.DeepEqual(got.joins, []string{"alice", "bob"}) || !reflect.DeepEqual(got.leaves, []string{"alice"}) {
		t.Fatalf("joins=%v leaves=%v", got.joins, got.leaves)
	}

	m.Stop()
	_ = pilot.List(PlayersList).AddEntry("carol")
	if len(got.joins) != 2 {
		t.Fatal("stopped list should not report entries")
	}
}

func TestNewMembership_Kinds(t *testing.T) {
	s := datasync.NewHub().Connect()
	for kind, want := range map[string]any{
		"":         &PresenceMembership{},
		"presence": &PresenceMembership{},
		"list":     &ListMembership{},
	} {
		m, err := NewMembership(kind, s)
		if err != nil {
			t.Fatalf("NewMembership(%q): %v", kind, err)
		}
		if reflect.TypeOf(m) != reflect.TypeOf(want) {
			t.Fatalf("NewMembership(%q) = %T", kind, m)
		}
	}
	if _, err := NewMembership("carrier-pigeon", s); err == nil {
		t.Fatal("unknown kind should fail")
	}
}

func TestArena_ListRosterJoinAndGameOver(t *testing.T) {
	ts := duel(t, WithListRoster())
	if len(ts.Arena.Ships()) != 2 {
		t.Fatalf("roster size = %d, want 2", len(ts.Arena.Ships()))
	}
	if ts.Hub.Subscribers(StatusEvent("target")) != 0 {
		t.Fatal("list roster should not rely on presence")
	}

	ts.RunUntil(func(ts *TestArena) bool { return ts.Pilot("target").Deleted() }, 3000)
	if _, ok := ts.Arena.Ship("target"); ok {
		t.Fatal("target should be gone after game over")
	}
	entries := ts.Hub.Connect().List(PlayersList).Entries()
	if !reflect.DeepEqual(entries, []string{"shooter"}) {
		t.Fatalf("players list = %v, want [shooter]", entries)
	}

	ts.Pilot("shooter").Offline()
	if len(ts.Arena.Ships()) != 0 {
		t.Fatal("removing the list entry should remove the ship")
	}
}
