package datasync

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func startServer(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub()
	srv := httptest.NewServer(NewServer(hub, log.New(io.Discard, "", 0)))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/sync"
}

func dialRemote(t *testing.T, url string) *Remote {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r, err := Dial(ctx, url, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

// waitFor pumps r until cond holds or the deadline passes.
func waitFor(t *testing.T, r *Remote, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r.Dispatch()
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRemote_RecordWriteReachesHub(t *testing.T) {
	hub, url := startServer(t)
	pilot := dialRemote(t, url)

	rec := pilot.Record("player/a")
	if err := rec.SetAll(Fields{"name": "a", "moving": true, "bodyRotation": 0.5}); err != nil {
		t.Fatalf("SetAll: %v", err)
	}
	local := hub.Connect().Record("player/a")
	deadline := time.Now().Add(2 * time.Second)
	for !local.IsReady() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	f := local.Get()
	if f["moving"] != true || f["bodyRotation"] != 0.5 {
		t.Fatalf("hub snapshot = %v", f)
	}
}

func TestRemote_SnapshotAppliedOnlyOnDispatch(t *testing.T) {
	hub, url := startServer(t)
	arena := dialRemote(t, url)

	rec := arena.Record("player/b")
	_ = hub.Connect().Record("player/b").SetAll(Fields{"shooting": true})

	waitFor(t, arena, "record snapshot", rec.IsReady)
	if rec.Get()["shooting"] != true {
		t.Fatalf("shooting = %v, want true", rec.Get()["shooting"])
	}
}

func TestRemote_ListenSeesPresence(t *testing.T) {
	_, url := startServer(t)
	arena := dialRemote(t, url)
	pilot := dialRemote(t, url)

	online := map[string]bool{}
	if err := arena.Events().Listen("^status/.*", func(m string, s bool) {
		online[m] = s
	}); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	// Let the listen request land before the subscription.
	time.Sleep(50 * time.Millisecond)
	if err := pilot.Events().Subscribe("status/c"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	waitFor(t, arena, "online", func() bool { return online["status/c"] })

	_ = pilot.Close()
	waitFor(t, arena, "offline", func() bool {
		on, seen := online["status/c"]
		return seen && !on
	})
}

func TestRemote_DeleteReachesOwner(t *testing.T) {
	_, url := startServer(t)
	arena := dialRemote(t, url)
	pilot := dialRemote(t, url)

	prec := pilot.Record("player/d")
	gone := false
	prec.OnDelete(func() { gone = true })
	_ = prec.SetAll(Fields{"name": "d"})

	arec := arena.Record("player/d")
	waitFor(t, arena, "arena snapshot", arec.IsReady)
	if err := arec.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	waitFor(t, pilot, "delete notification", func() bool { return gone })
	if prec.IsReady() {
		t.Fatal("pilot handle should be dead after delete")
	}
}

func TestRemote_ListSnapshotAndUpdates(t *testing.T) {
	hub, url := startServer(t)
	seed := hub.Connect().List("players")
	_ = seed.AddEntry("a")

	arena := dialRemote(t, url)
	var added []string
	l := arena.List("players")
	l.OnEntryAdded(func(e string) { added = append(added, e) })
	waitFor(t, arena, "list snapshot", l.IsReady)
	_ = seed.AddEntry("b")
	waitFor(t, arena, "entry b", func() bool { return len(added) == 2 })
	if added[0] != "a" || added[1] != "b" {
		t.Fatalf("added = %v", added)
	}
}

// dispatchUntil pumps r until at least n pushes were applied.
func dispatchUntil(t *testing.T, r *Remote, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	got := 0
	for got < n && time.Now().Before(deadline) {
		got += r.Dispatch()
		time.Sleep(5 * time.Millisecond)
	}
	if got < n {
		t.Fatalf("applied %d pushes, want %d", got, n)
	}
}

func TestRemote_OwnWriteSurvivesSubscribeSnapshot(t *testing.T) {
	_, url := startServer(t)
	pilot := dialRemote(t, url)

	rec := pilot.Record("player/a")
	if err := rec.SetAll(Fields{"name": "a", "moving": true}); err != nil {
		t.Fatalf("SetAll: %v", err)
	}
	dispatchUntil(t, pilot, 1) // the snapshot, taken before the write landed

	if !rec.IsReady() {
		t.Fatal("record should stay ready after its snapshot")
	}
	if f := rec.Get(); f["name"] != "a" || f["moving"] != true {
		t.Fatalf("fields = %v", f)
	}
}

func TestRemote_SetMergesOverSubscribeSnapshot(t *testing.T) {
	hub, url := startServer(t)
	_ = hub.Connect().Record("player/b").SetAll(Fields{"name": "b", "shooting": true})
	pilot := dialRemote(t, url)

	rec := pilot.Record("player/b")
	if err := rec.Set("moving", true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	changes := 0
	rec.OnChange(func(Fields) { changes++ })
	dispatchUntil(t, pilot, 1)

	f := rec.Get()
	if f["moving"] != true || f["shooting"] != true || f["name"] != "b" {
		t.Fatalf("fields = %v, want server fields plus the local write", f)
	}
	if changes != 1 {
		t.Fatalf("OnChange ran %d times, want 1", changes)
	}
}

func TestRemote_LaterListenerSeesKnownMatches(t *testing.T) {
	_, url := startServer(t)
	arena := dialRemote(t, url)
	pilot := dialRemote(t, url)

	if err := pilot.Events().Subscribe("status/e"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	first := map[string]bool{}
	_ = arena.Events().Listen("^status/.*", func(m string, s bool) { first[m] = s })
	waitFor(t, arena, "existing subscription", func() bool { return first["status/e"] })

	var second []string
	if err := arena.Events().Listen("^status/.*", func(m string, s bool) {
		if s {
			second = append(second, m)
		}
	}); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if len(second) != 1 || second[0] != "status/e" {
		t.Fatalf("second listener saw %v, want [status/e]", second)
	}
}
