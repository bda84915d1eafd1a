package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/config"
	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/datasync"
	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/game"
	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/pilot"
)

const (
	frameMs      = 16.0
	collectEvery = 60
)

type runStats struct {
	runIndex int
	seed     int64

	firstJoinTick int
	firstHitTick  int
	firstKillTick int

	joins  int
	leaves int
	hits   int
	kills  int
	shots  int

	peakPool      int
	windowSummary *game.WindowReport
	pilots        []game.PilotStats
}

func main() {
	var runs, ticks int
	var seedStep int64
	cfg, err := config.Load("headless-report", os.Args[1:], func(set *flag.FlagSet) {
		set.IntVar(&runs, "runs", 5, "number of headless arena runs")
		set.IntVar(&ticks, "ticks", 3600, "ticks per run")
		set.Int64Var(&seedStep, "seed-step", 1, "seed increment between runs")
	})
	if err != nil {
		log.Fatal(err)
	}
	if runs <= 0 {
		fmt.Println("error: -runs must be > 0")
		return
	}
	if ticks <= 0 {
		fmt.Println("error: -ticks must be > 0")
		return
	}
	if cfg.Bots < 2 {
		fmt.Println("error: -bots must be >= 2")
		return
	}

	fmt.Printf("=== Headless Arena Report ===\n")
	fmt.Printf("runs=%d ticks=%d bots=%d membership=%s seed_base=%d seed_step=%d\n\n",
		runs, ticks, cfg.Bots, cfg.Membership, cfg.Seed, seedStep)

	all := make([]runStats, 0, runs)
	for i := 0; i < runs; i++ {
		seed := cfg.Seed + int64(i)*seedStep
		stats, err := runBotMatch(i+1, seed, ticks, cfg)
		if err != nil {
			log.Fatalf("run %d: %v", i+1, err)
		}
		all = append(all, stats)
		printRun(stats)
	}

	printAggregate(all)
}

// runBotMatch plays cfg.Bots scripted pilots against each other on an
// in-process hub at a fixed frame time.
func runBotMatch(runIndex int, seed int64, ticks int, cfg config.Config) (runStats, error) {
	hub := datasync.NewHub()
	arenaClient := hub.Connect()
	defer arenaClient.Close()

	simLog := game.NewSimLog(false)
	scoreboard := game.NewScoreboard()
	reporter := game.NewArenaReporter(0)
	arena := game.NewArena(game.ArenaConfig{
		Width:          float64(cfg.Width),
		Height:         float64(cfg.Height),
		InitialBullets: cfg.InitialBullets,
		Seed:           seed,
	}, arenaClient, game.WithSimLog(simLog), game.WithScoreboard(scoreboard))
	membership, err := game.NewMembership(cfg.ArenaMembership(), arenaClient)
	if err != nil {
		return runStats{}, err
	}
	if err := arena.Attach(membership); err != nil {
		return runStats{}, err
	}
	defer arena.Detach()

	announce, err := pilot.AnnounceFor(cfg.Membership)
	if err != nil {
		return runStats{}, err
	}
	pilotClient := hub.Connect()
	defer pilotClient.Close()
	bots := make([]*pilot.Bot, 0, cfg.Bots)
	for i := 0; i < cfg.Bots; i++ {
		s := pilot.NewSession(pilotClient, announce)
		if err := s.Join(fmt.Sprintf("bot%02d", i+1)); err != nil {
			return runStats{}, err
		}
		bots = append(bots, pilot.NewBot(s, seed*100+int64(i)))
	}

	peak := 0
	for t := 1; t <= ticks; t++ {
		now := float64(t) * frameMs
		for _, b := range bots {
			if err := b.Step(now); err != nil {
				return runStats{}, err
			}
		}
		arena.Tick(now)
		if n := arena.Bullets().Allocated(); n > peak {
			peak = n
		}
		if arena.CurrentTick()%collectEvery == 0 {
			reporter.Collect(arena)
		}
	}

	entries := simLog.Entries()
	tally := simLog.Tally()
	ranked := scoreboard.Ranked()
	shots := 0
	for _, p := range ranked {
		shots += p.Shots
	}
	return runStats{
		runIndex:      runIndex,
		seed:          seed,
		firstJoinTick: firstTick(entries, game.LogRoster, game.EvJoin),
		firstHitTick:  firstTick(entries, game.LogCombat, game.EvHit),
		firstKillTick: firstTick(entries, game.LogCombat, game.EvDestroyed),
		joins:         tally.Joins,
		leaves:        tally.Leaves,
		hits:          tally.Hits,
		kills:         tally.Kills,
		shots:         shots,
		peakPool:      peak,
		windowSummary: reporter.WindowSummary(),
		pilots:        ranked,
	}, nil
}

func firstTick(entries []game.SimLogEntry, category, key string) int {
	for _, e := range entries {
		if e.Category == category && e.Key == key {
			return e.Tick
		}
	}
	return -1
}

// detectRout reports whether one pilot ran away with the match: at least
// three kills and twice the kills of the runner-up.
func detectRout(rs runStats) (bool, string) {
	if len(rs.pilots) < 2 {
		return false, "not_enough_pilots"
	}
	top, next := rs.pilots[0], rs.pilots[1]
	if top.Kills < 3 {
		return false, fmt.Sprintf("low_kills top=%d", top.Kills)
	}
	if top.Kills < 2*next.Kills {
		return false, fmt.Sprintf("contested %s=%d %s=%d", top.Name, top.Kills, next.Name, next.Kills)
	}
	return true, fmt.Sprintf("dominant %s=%d %s=%d", top.Name, top.Kills, next.Name, next.Kills)
}

func printRun(rs runStats) {
	fmt.Printf("--- Run %d (seed=%d) ---\n", rs.runIndex, rs.seed)
	fmt.Printf("phase_markers: first_join=%d first_hit=%d first_kill=%d\n",
		rs.firstJoinTick, rs.firstHitTick, rs.firstKillTick)
	fmt.Printf("event_totals: join=%d leave=%d shot=%d hit=%d kill=%d\n",
		rs.joins, rs.leaves, rs.shots, rs.hits, rs.kills)
	fmt.Printf("bullet_pool: peak_allocated=%d\n", rs.peakPool)
	if rs.windowSummary != nil {
		fmt.Printf("window_samples=%d window_tick_range=%d..%d\n",
			rs.windowSummary.SampleCount, rs.windowSummary.FromTick, rs.windowSummary.ToTick)
		fmt.Printf("window_avg: alive=%.1f health=%.1f bullets=%.1f hits=%d kills=%d\n",
			rs.windowSummary.AvgAlive,
			rs.windowSummary.AvgHealth,
			rs.windowSummary.AvgActiveBullets,
			rs.windowSummary.HitsInWindow,
			rs.windowSummary.KillsInWindow,
		)
	}
	rout, reason := detectRout(rs)
	fmt.Printf("rout=%v (%s)\n", rout, reason)
	for _, p := range rs.pilots {
		fmt.Printf("  %-6s kills=%d deaths=%d hits=%d/%d (%.0f%%) joins=%d\n",
			p.Name, p.Kills, p.Deaths, p.Hits, p.Shots, p.Accuracy()*100, p.Joins)
	}
	fmt.Println()
}

func printAggregate(all []runStats) {
	totalJoins := 0
	totalLeaves := 0
	totalShots := 0
	totalHits := 0
	totalKills := 0
	routs := 0
	hitTicks := make([]int, 0, len(all))
	killTicks := make([]int, 0, len(all))

	// Aggregate per-pilot tallies across runs.
	type pilotAgg struct {
		kills, deaths, hits, shots, wins int
	}
	aggs := map[string]*pilotAgg{}

	for _, rs := range all {
		totalJoins += rs.joins
		totalLeaves += rs.leaves
		totalShots += rs.shots
		totalHits += rs.hits
		totalKills += rs.kills
		if rs.firstHitTick >= 0 {
			hitTicks = append(hitTicks, rs.firstHitTick)
		}
		if rs.firstKillTick >= 0 {
			killTicks = append(killTicks, rs.firstKillTick)
		}
		if rout, _ := detectRout(rs); rout {
			routs++
		}
		for i, p := range rs.pilots {
			ag, ok := aggs[p.Name]
			if !ok {
				ag = &pilotAgg{}
				aggs[p.Name] = ag
			}
			ag.kills += p.Kills
			ag.deaths += p.Deaths
			ag.hits += p.Hits
			ag.shots += p.Shots
			if i == 0 && p.Kills > 0 {
				ag.wins++
			}
		}
	}

	fmt.Println("=== Aggregate ===")
	fmt.Printf("runs=%d routs=%d\n", len(all), routs)
	fmt.Printf("avg_events_per_run: join=%.1f leave=%.1f shot=%.1f hit=%.1f kill=%.1f\n",
		avg(totalJoins, len(all)), avg(totalLeaves, len(all)), avg(totalShots, len(all)), avg(totalHits, len(all)), avg(totalKills, len(all)))
	fmt.Printf("phase_marker_avg_ticks: first_hit=%s first_kill=%s\n",
		avgTickString(hitTicks), avgTickString(killTicks))

	fmt.Println("\n=== Aggregate Pilot Performance ===")
	names := make([]string, 0, len(aggs))
	for name := range aggs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ag := aggs[name]
		acc := 0.0
		if ag.shots > 0 {
			acc = float64(ag.hits) / float64(ag.shots) * 100
		}
		fmt.Printf("  %s  kills=%.1f deaths=%.1f accuracy=%.0f%% wins=%d\n",
			name, avg(ag.kills, len(all)), avg(ag.deaths, len(all)), acc, ag.wins)
	}
	fmt.Printf("\nleaders: %s\n", leaders(all))
}

// leaders lists each run's top pilot in run order.
func leaders(all []runStats) string {
	out := make([]string, 0, len(all))
	for _, rs := range all {
		if len(rs.pilots) == 0 || rs.pilots[0].Kills == 0 {
			out = append(out, "none")
			continue
		}
		out = append(out, rs.pilots[0].Name)
	}
	if len(out) == 0 {
		return "none"
	}
	return strings.Join(out, ",")
}

func avg(sum int, n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

func avgTickString(vals []int) string {
	if len(vals) == 0 {
		return "n/a"
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return fmt.Sprintf("%.1f", float64(sum)/float64(len(vals)))
}
