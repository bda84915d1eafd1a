package game

import (
	"fmt"
	"sort"
	"strings"
)

// Categories and keys written by the arena.
const (
	LogRoster = "roster" // join, join_duplicate, leave
	LogCombat = "combat" // hit, destroyed
	LogFire   = "fire"   // shot (verbose)
	LogMove   = "move"   // position (verbose)
	LogRecord = "record" // delete_failed

	EvJoin          = "join"
	EvJoinDuplicate = "join_duplicate"
	EvLeave         = "leave"
	EvHit           = "hit"
	EvDestroyed     = "destroyed"
	EvShot          = "shot"
	EvPosition      = "position"
	EvDeleteFailed  = "delete_failed"
)

// SimLogEntry is one arena event.
type SimLogEntry struct {
	Tick     int
	Ship     string // pilot name
	Category string
	Key      string
	Value    string  // detail for humans
	NumVal   float64 // ship id, health or speed depending on the key
}

// String renders the entry as one aligned line:
//
//	[T=042] alice    combat    hit              by bob (health 9)
func (e SimLogEntry) String() string {
	return fmt.Sprintf("[T=%03d] %-8s %-9s %-16s %s",
		e.Tick, e.Ship, e.Category, e.Key, e.Value)
}

func (e SimLogEntry) is(category, key string) bool {
	return (category == "" || e.Category == category) && (key == "" || e.Key == key)
}

// EventTally counts the arena events that matter for a match summary.
type EventTally struct {
	Joins  int
	Leaves int
	Shots  int // only counted in verbose mode
	Hits   int
	Kills  int
}

// SimLog is the arena's unbounded event record, read by tests and reports.
// CombatFeed is the short on-screen version.
type SimLog struct {
	entries []SimLogEntry
	tally   EventTally
	verbose bool
}

// NewSimLog creates a log; verbose adds per-tick movement and every shot.
func NewSimLog(verbose bool) *SimLog {
	return &SimLog{verbose: verbose}
}

func (sl *SimLog) Verbose() bool { return sl.verbose }

// Add appends an entry.
func (sl *SimLog) Add(tick int, ship, category, key, value string, numVal float64) {
	e := SimLogEntry{Tick: tick, Ship: ship, Category: category, Key: key, Value: value, NumVal: numVal}
	sl.entries = append(sl.entries, e)
	switch {
	case e.is(LogRoster, EvJoin):
		sl.tally.Joins++
	case e.is(LogRoster, EvLeave):
		sl.tally.Leaves++
	case e.is(LogFire, EvShot):
		sl.tally.Shots++
	case e.is(LogCombat, EvHit):
		sl.tally.Hits++
	case e.is(LogCombat, EvDestroyed):
		sl.tally.Kills++
	}
}

// AddVerbose is Add, dropped unless the log is verbose.
func (sl *SimLog) AddVerbose(tick int, ship, category, key, value string, numVal float64) {
	if sl.verbose {
		sl.Add(tick, ship, category, key, value, numVal)
	}
}

func (sl *SimLog) Entries() []SimLogEntry { return sl.entries }
func (sl *SimLog) Tally() EventTally      { return sl.tally }

// Filter returns entries with the given category and key; "" matches anything.
func (sl *SimLog) Filter(category, key string) []SimLogEntry {
	var out []SimLogEntry
	for _, e := range sl.entries {
		if e.is(category, key) {
			out = append(out, e)
		}
	}
	return out
}

// CountCategory is len(Filter(category, key)).
func (sl *SimLog) CountCategory(category, key string) int {
	n := 0
	for _, e := range sl.entries {
		if e.is(category, key) {
			n++
		}
	}
	return n
}

// First returns the earliest entry with category and key.
func (sl *SimLog) First(category, key string) (SimLogEntry, bool) {
	for _, e := range sl.entries {
		if e.is(category, key) {
			return e, true
		}
	}
	return SimLogEntry{}, false
}

// HasEntry reports whether some entry with category and key has a value
// containing substr.
func (sl *SimLog) HasEntry(category, key, substr string) bool {
	for _, e := range sl.entries {
		if e.is(category, key) && strings.Contains(e.Value, substr) {
			return true
		}
	}
	return false
}

// Format returns the whole log, one entry per line, for t.Log.
func (sl *SimLog) Format() string {
	var sb strings.Builder
	for _, e := range sl.entries {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Summary describes the roster, the pool and the event totals at tick.
func (sl *SimLog) Summary(tick int, ships []*Ship, bullets *BulletPool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- Arena at T=%03d ---\n", tick)

	sorted := append([]*Ship(nil), ships...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name() < sorted[j].Name() })
	for _, s := range sorted {
		x, y := s.Position()
		state := "flying"
		if s.Destroyed() {
			state = "exploding"
		}
		fmt.Fprintf(&sb, "  %-10s %-9s hp=%2d speed=%.2f pos=(%.0f,%.0f)\n", s.Name(), state, s.Health(), s.Speed(), x, y)
	}
	if bullets != nil {
		fmt.Fprintf(&sb, "pool: active=%d free=%d allocated=%d\n",
			bullets.ActiveCount(), bullets.FreeCount(), bullets.Allocated())
	}
	t := sl.tally
	fmt.Fprintf(&sb, "events: joins=%d leaves=%d hits=%d kills=%d\n", t.Joins, t.Leaves, t.Hits, t.Kills)
	return sb.String()
}
