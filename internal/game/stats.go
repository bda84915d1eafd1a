package game

import (
	"fmt"
	"sort"
	"strings"
)

// PilotStats is the running tally for one player name. It survives the ship,
// so a pilot who rejoins keeps their score.
type PilotStats struct {
	Name      string
	Joins     int
	Shots     int
	Hits      int // bullets this pilot landed
	HitsTaken int
	Kills     int
	Deaths    int
}

// Accuracy returns landed hits per shot fired, 0 when nothing was fired.
func (p PilotStats) Accuracy() float64 {
	if p.Shots == 0 {
		return 0
	}
	return float64(p.Hits) / float64(p.Shots)
}

// Scoreboard tallies combat per pilot for the whole session.
type Scoreboard struct {
	pilots map[string]*PilotStats
}

// NewScoreboard creates an empty scoreboard.
func NewScoreboard() *Scoreboard {
	return &Scoreboard{pilots: make(map[string]*PilotStats)}
}

func (sb *Scoreboard) pilot(name string) *PilotStats {
	p, ok := sb.pilots[name]
	if !ok {
		p = &PilotStats{Name: name}
		sb.pilots[name] = p
	}
	return p
}

func (sb *Scoreboard) RecordJoin(name string) { sb.pilot(name).Joins++ }
func (sb *Scoreboard) RecordShot(name string) { sb.pilot(name).Shots++ }

// RecordHit credits shooter with a hit on target. An empty shooter (the ship
// that fired has already left) only counts against the target.
func (sb *Scoreboard) RecordHit(shooter, target string) {
	if shooter != "" {
		sb.pilot(shooter).Hits++
	}
	sb.pilot(target).HitsTaken++
}

// RecordKill credits shooter with destroying target.
func (sb *Scoreboard) RecordKill(shooter, target string) {
	if shooter != "" {
		sb.pilot(shooter).Kills++
	}
	sb.pilot(target).Deaths++
}

// Get returns the tally for name.
func (sb *Scoreboard) Get(name string) (PilotStats, bool) {
	p, ok := sb.pilots[name]
	if !ok {
		return PilotStats{}, false
	}
	return *p, true
}

// Ranked returns every pilot ordered by kills, then fewest deaths, then hits.
func (sb *Scoreboard) Ranked() []PilotStats {
	out := make([]PilotStats, 0, len(sb.pilots))
	for _, p := range sb.pilots {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kills != b.Kills {
			return a.Kills > b.Kills
		}
		if a.Deaths != b.Deaths {
			return a.Deaths < b.Deaths
		}
		if a.Hits != b.Hits {
			return a.Hits > b.Hits
		}
		return a.Name < b.Name
	})
	return out
}

// Format renders the ranking as a plain-text table.
func (sb *Scoreboard) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-3s %-12s %5s %6s %6s %5s %5s %6s\n", "#", "pilot", "kills", "deaths", "shots", "hits", "taken", "acc")
	for i, p := range sb.Ranked() {
		fmt.Fprintf(&b, "%-3d %-12s %5d %6d %6d %5d %5d %5.0f%%\n",
			i+1, p.Name, p.Kills, p.Deaths, p.Shots, p.Hits, p.HitsTaken, p.Accuracy()*100)
	}
	return b.String()
}
