package game

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"golang.org/x/image/colornames"
)

// --- Scoreboard ---

func TestScoreboard_HitAndKillCredit(t *testing.T) {
	sb := NewScoreboard()
	sb.RecordShot("alice")
	sb.RecordShot("alice")
	sb.RecordHit("alice", "bob")
	sb.RecordKill("alice", "bob")

	a, _ := sb.Get("alice")
	if a.Shots != 2 || a.Hits != 1 || a.Kills != 1 || a.Deaths != 0 {
		t.Fatalf("alice = %+v", a)
	}
	b, _ := sb.Get("bob")
	if b.HitsTaken != 1 || b.Deaths != 1 || b.Kills != 0 {
		t.Fatalf("bob = %+v", b)
	}
}

func TestScoreboard_EmptyShooterOnlyCountsAgainstTarget(t *testing.T) {
	sb := NewScoreboard()
	sb.RecordHit("", "bob")
	sb.RecordKill("", "bob")
	if _, ok := sb.Get(""); ok {
		t.Fatal("an empty shooter must not get an entry")
	}
	b, _ := sb.Get("bob")
	if b.HitsTaken != 1 || b.Deaths != 1 {
		t.Fatalf("bob = %+v", b)
	}
}

func TestPilotStats_Accuracy(t *testing.T) {
	if (PilotStats{}).Accuracy() != 0 {
		t.Fatal("no shots should be 0 accuracy")
	}
	p := PilotStats{Shots: 4, Hits: 1}
	if math.Abs(p.Accuracy()-0.25) > 1e-9 {
		t.Fatalf("accuracy = %v, want 0.25", p.Accuracy())
	}
}

func TestScoreboard_Ranking(t *testing.T) {
	sb := NewScoreboard()
	sb.RecordKill("carol", "x")
	sb.RecordKill("alice", "x")
	sb.RecordKill("alice", "y")
	sb.RecordKill("bob", "x")
	sb.RecordKill("z", "bob") // bob: 1 kill, 1 death
	sb.RecordHit("dave", "x")

	var names []string
	for _, p := range sb.Ranked() {
		names = append(names, p.Name)
	}
	got := strings.Join(names, ",")
	// alice 2 kills; carol 1/0 ahead of bob 1/1 and z 1/0 by name; then
	// zero-kill pilots by deaths, hits and name.
	want := "alice,carol,z,bob,dave,y,x"
	if got != want {
		t.Fatalf("ranking = %s, want %s", got, want)
	}
}

func TestScoreboard_Format(t *testing.T) {
	sb := NewScoreboard()
	sb.RecordShot("alice")
	sb.RecordHit("alice", "bob")
	out := sb.Format()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got:\n%s", out)
	}
	if !strings.Contains(lines[1], "alice") || !strings.Contains(lines[1], "100%") {
		t.Fatalf("first row = %q", lines[1])
	}
}

// --- CombatFeed ---

func TestCombatFeed_RecentIsChronological(t *testing.T) {
	cf := NewCombatFeed()
	cf.Add(1, "a", colornames.Lime, "first")
	cf.Add(2, "b", colornames.Aqua, "second")
	got := cf.Recent()
	if len(got) != 2 || got[0].Message != "first" || got[1].Message != "second" {
		t.Fatalf("recent = %+v", got)
	}
}

func TestCombatFeed_WrapsAtCapacity(t *testing.T) {
	cf := NewCombatFeed()
	for i := 0; i < feedMaxEntries+5; i++ {
		cf.Add(i, "a", colornames.Lime, fmt.Sprintf("m%d", i))
	}
	if cf.Len() != feedMaxEntries {
		t.Fatalf("len = %d, want %d", cf.Len(), feedMaxEntries)
	}
	got := cf.Recent()
	if got[0].Tick != 5 || got[len(got)-1].Tick != feedMaxEntries+4 {
		t.Fatalf("window = [%d..%d], want [5..%d]", got[0].Tick, got[len(got)-1].Tick, feedMaxEntries+4)
	}
}
