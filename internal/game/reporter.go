package game

import (
	"fmt"
	"strings"
)

// reportWindowTicks is the default sliding window for recent-activity reports (~10s at 60 fps).
const reportWindowTicks = 600

// ArenaReport is a snapshot of the arena at one tick.
type ArenaReport struct {
	Tick int

	Alive     int
	Exploding int
	Moving    int // ships with non-zero speed
	Injured   int // health < max but > 0
	AvgHealth float64
	AvgSpeed  float64

	ActiveBullets int
	FreeBullets   int
	Allocated     int

	// Cumulative event counts taken from the SimLog.
	Joins  int
	Leaves int
	Hits   int
	Kills  int
}

// ArenaReporter samples the arena periodically and summarises sliding windows.
type ArenaReporter struct {
	history     []ArenaReport
	windowTicks int
}

// NewArenaReporter creates a reporter with the given window size.
func NewArenaReporter(windowTicks int) *ArenaReporter {
	if windowTicks <= 0 {
		windowTicks = reportWindowTicks
	}
	return &ArenaReporter{windowTicks: windowTicks}
}

// Collect gathers a snapshot from the arena. Call it periodically (e.g. every 60 ticks).
func (r *ArenaReporter) Collect(a *Arena) {
	rpt := ArenaReport{Tick: a.CurrentTick()}
	var health, speed float64
	for _, s := range a.Ships() {
		if s.Destroyed() {
			rpt.Exploding++
			continue
		}
		rpt.Alive++
		health += float64(s.Health())
		speed += s.Speed()
		if s.Speed() > 0 {
			rpt.Moving++
		}
		if s.Health() < MaxHealth {
			rpt.Injured++
		}
	}
	if rpt.Alive > 0 {
		rpt.AvgHealth = health / float64(rpt.Alive)
		rpt.AvgSpeed = speed / float64(rpt.Alive)
	}

	b := a.Bullets()
	rpt.ActiveBullets = b.ActiveCount()
	rpt.FreeBullets = b.FreeCount()
	rpt.Allocated = b.Allocated()

	t := a.SimLog().Tally()
	rpt.Joins, rpt.Leaves, rpt.Hits, rpt.Kills = t.Joins, t.Leaves, t.Hits, t.Kills

	r.history = append(r.history, rpt)
}

// Latest returns the most recent report, or nil.
func (r *ArenaReporter) Latest() *ArenaReport {
	if len(r.history) == 0 {
		return nil
	}
	return &r.history[len(r.history)-1]
}

// History returns every collected report.
func (r *ArenaReporter) History() []ArenaReport {
	return r.history
}

// WindowReport aggregates the reports inside the sliding window.
type WindowReport struct {
	FromTick    int
	ToTick      int
	SampleCount int

	AvgAlive         float64
	AvgActiveBullets float64
	AvgHealth        float64
	PeakAllocated    int

	HitsInWindow  int
	KillsInWindow int
}

// WindowSummary aggregates the reports within the last windowTicks.
func (r *ArenaReporter) WindowSummary() *WindowReport {
	if len(r.history) == 0 {
		return nil
	}

	latestTick := r.history[len(r.history)-1].Tick
	cutoff := latestTick - r.windowTicks
	var window []ArenaReport
	for i := len(r.history) - 1; i >= 0; i-- {
		if r.history[i].Tick < cutoff {
			break
		}
		window = append(window, r.history[i])
	}
	if len(window) == 0 {
		return nil
	}

	n := float64(len(window))
	newest, oldest := window[0], window[len(window)-1]
	wr := &WindowReport{
		FromTick:      oldest.Tick,
		ToTick:        newest.Tick,
		SampleCount:   len(window),
		HitsInWindow:  newest.Hits - oldest.Hits,
		KillsInWindow: newest.Kills - oldest.Kills,
	}
	for _, rpt := range window {
		wr.AvgAlive += float64(rpt.Alive)
		wr.AvgActiveBullets += float64(rpt.ActiveBullets)
		wr.AvgHealth += rpt.AvgHealth
		if rpt.Allocated > wr.PeakAllocated {
			wr.PeakAllocated = rpt.Allocated
		}
	}
	wr.AvgAlive /= n
	wr.AvgActiveBullets /= n
	wr.AvgHealth /= n
	return wr
}

// Format renders the window report.
func (wr *WindowReport) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- Window T=%d..%d (%d samples) ---\n", wr.FromTick, wr.ToTick, wr.SampleCount)
	fmt.Fprintf(&sb, "avg_alive=%.1f  avg_health=%.1f  avg_bullets=%.1f  peak_pool=%d\n",
		wr.AvgAlive, wr.AvgHealth, wr.AvgActiveBullets, wr.PeakAllocated)
	fmt.Fprintf(&sb, "hits=%d  kills=%d\n", wr.HitsInWindow, wr.KillsInWindow)
	return sb.String()
}

// FormatLatest renders the latest snapshot.
func (r *ArenaReporter) FormatLatest() string {
	rpt := r.Latest()
	if rpt == nil {
		return "No data.\n"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- Snapshot T=%d ---\n", rpt.Tick)
	fmt.Fprintf(&sb, "Ships:   alive=%d exploding=%d moving=%d injured=%d  avg_health=%.1f avg_speed=%.2f\n",
		rpt.Alive, rpt.Exploding, rpt.Moving, rpt.Injured, rpt.AvgHealth, rpt.AvgSpeed)
	fmt.Fprintf(&sb, "Bullets: active=%d free=%d allocated=%d\n",
		rpt.ActiveBullets, rpt.FreeBullets, rpt.Allocated)
	fmt.Fprintf(&sb, "Events:  joins=%d leaves=%d hits=%d kills=%d\n",
		rpt.Joins, rpt.Leaves, rpt.Hits, rpt.Kills)
	return sb.String()
}
