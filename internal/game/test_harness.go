package game

import (
	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/datasync"
)

// TestArena is a headless arena wired to an in-process datasync hub. It drives
// the same Tick sequence as the window with a fixed frame time, so runs are
// deterministic for a given seed. Used by tests and the headless report.
type TestArena struct {
	Width   float64
	Height  float64
	FrameMs float64
	Now     float64

	Hub    *datasync.Hub
	Arena  *Arena
	SimLog *SimLog
	Feed   *CombatFeed
	Stats  *Scoreboard

	// Reporter, when set, samples the arena every ReportEvery ticks.
	Reporter    *ArenaReporter
	ReportEvery int

	// LastFrame is the most recent frame handed to the renderer.
	LastFrame Frame
	Frames    int

	seed           int64
	initialBullets int
	listRoster     bool
	session        *datasync.Session
	pilots         map[string]*TestPilot
}

// TestPilot is a scripted player publishing controls straight to the hub.
type TestPilot struct {
	Name    string
	ts      *TestArena
	session *datasync.Session
	record  datasync.Record
	state   ControlState
	online  bool
	deleted bool
}

type arenaOptionKind int

const (
	arenaOptInfra arenaOptionKind = iota // size, seed, verbose, roster source
	arenaOptPilot                        // pilots, applied once the arena exists
)

// TestArenaOption is a builder function applied during NewTestArena.
type TestArenaOption struct {
	kind arenaOptionKind
	fn   func(*TestArena)
}

// WithArenaSize sets the playfield dimensions.
func WithArenaSize(w, h float64) TestArenaOption {
	return TestArenaOption{arenaOptInfra, func(ts *TestArena) {
		ts.Width = w
		ts.Height = h
	}}
}

// WithSeed sets the spawn-position seed.
func WithSeed(seed int64) TestArenaOption {
	return TestArenaOption{arenaOptInfra, func(ts *TestArena) { ts.seed = seed }}
}

// WithVerbose enables per-tick verbose logging.
func WithVerbose(v bool) TestArenaOption {
	return TestArenaOption{arenaOptInfra, func(ts *TestArena) { ts.SimLog = NewSimLog(v) }}
}

// WithFrameMs sets the simulated time between ticks.
func WithFrameMs(ms float64) TestArenaOption {
	return TestArenaOption{arenaOptInfra, func(ts *TestArena) { ts.FrameMs = ms }}
}

// WithInitialBullets sets the bullet pool prefill.
func WithInitialBullets(n int) TestArenaOption {
	return TestArenaOption{arenaOptInfra, func(ts *TestArena) { ts.initialBullets = n }}
}

// WithReporter samples the arena every `every` ticks into a windowed reporter.
func WithReporter(every, window int) TestArenaOption {
	return TestArenaOption{arenaOptInfra, func(ts *TestArena) {
		ts.Reporter = NewArenaReporter(window)
		ts.ReportEvery = every
	}}
}

// WithListRoster uses the shared players list instead of presence events.
func WithListRoster() TestArenaOption {
	return TestArenaOption{arenaOptInfra, func(ts *TestArena) { ts.listRoster = true }}
}

// WithPilot adds a pilot that comes online with the given controls.
func WithPilot(name string, c ControlState) TestArenaOption {
	return TestArenaOption{arenaOptPilot, func(ts *TestArena) {
		p := ts.NewPilot(name)
		p.state = c
		p.Online()
	}}
}

// NewTestArena builds the harness in two ordered passes:
//  1. Infrastructure (size, seed, verbose, roster source), then the hub and arena
//  2. Pilots
func NewTestArena(opts ...TestArenaOption) *TestArena {
	ts := &TestArena{
		Width:          1280,
		Height:         720,
		FrameMs:        16,
		SimLog:         NewSimLog(false),
		Feed:           NewCombatFeed(),
		Stats:          NewScoreboard(),
		seed:           1,
		initialBullets: InitialBullets,
		pilots:         make(map[string]*TestPilot),
	}
	for _, o := range opts {
		if o.kind == arenaOptInfra {
			o.fn(ts)
		}
	}

	ts.Hub = datasync.NewHub()
	ts.session = ts.Hub.Connect()
	ts.Arena = NewArena(ArenaConfig{
		Width:          ts.Width,
		Height:         ts.Height,
		InitialBullets: ts.initialBullets,
		Seed:           ts.seed,
	}, ts.session,
		WithSimLog(ts.SimLog),
		WithCombatFeed(ts.Feed),
		WithScoreboard(ts.Stats),
		WithRenderer(RendererFunc(func(f Frame) {
			ts.LastFrame = f
			ts.Frames++
		})),
	)
	var m Membership = &PresenceMembership{Events: ts.session.Events()}
	if ts.listRoster {
		m = &ListMembership{Lists: ts.session}
	}
	if err := ts.Arena.Attach(m); err != nil {
		panic(err) // in-process hub sources cannot fail to start
	}

	for _, o := range opts {
		if o.kind == arenaOptPilot {
			o.fn(ts)
		}
	}
	return ts
}

// NewPilot opens a hub session for name without bringing it online.
func (ts *TestArena) NewPilot(name string) *TestPilot {
	p := &TestPilot{Name: name, ts: ts, session: ts.Hub.Connect()}
	ts.pilots[name] = p
	return p
}

// Pilot returns the named pilot.
func (ts *TestArena) Pilot(name string) *TestPilot { return ts.pilots[name] }

// Online writes the pilot's record and announces presence.
func (p *TestPilot) Online() {
	p.record = p.session.Record(PlayerRecord(p.Name))
	p.deleted = false
	p.record.OnDelete(func() {
		p.deleted = true
		if p.ts.listRoster {
			_ = p.session.List(PlayersList).RemoveEntry(p.Name)
		} else {
			_ = p.session.Unsubscribe(StatusEvent(p.Name))
		}
		p.online = false
	})
	_ = p.record.SetAll(p.state.Fields(p.Name))
	if p.ts.listRoster {
		_ = p.session.List(PlayersList).AddEntry(p.Name)
	} else {
		_ = p.session.Subscribe(StatusEvent(p.Name))
	}
	p.online = true
}

// Offline drops the pilot's connection, as a closed browser tab would.
func (p *TestPilot) Offline() {
	if p.ts.listRoster {
		_ = p.session.List(PlayersList).RemoveEntry(p.Name)
	}
	_ = p.session.Close()
	p.online = false
	p.session = p.ts.Hub.Connect()
}

// Set publishes new controls.
func (p *TestPilot) Set(c ControlState) {
	p.state = c
	if p.record != nil && !p.deleted {
		_ = p.record.SetAll(c.Fields(p.Name))
	}
}

func (p *TestPilot) State() ControlState { return p.state }
func (p *TestPilot) IsOnline() bool      { return p.online }

// Deleted reports whether the arena deleted the pilot's record.
func (p *TestPilot) Deleted() bool { return p.deleted }

// Place moves name's ship, bypassing the random spawn.
func (ts *TestArena) Place(name string, x, y float64) *Ship {
	s, ok := ts.Arena.Ship(name)
	if !ok {
		return nil
	}
	s.x = x
	s.y = y
	return s
}

// RunTicks advances the arena n frames.
func (ts *TestArena) RunTicks(n int) {
	for i := 0; i < n; i++ {
		ts.step()
	}
}

// RunUntil advances the arena up to maxTicks, stopping early if predicate
// returns true. Returns the tick at which the predicate held, or -1.
func (ts *TestArena) RunUntil(predicate func(*TestArena) bool, maxTicks int) int {
	for i := 0; i < maxTicks; i++ {
		ts.step()
		if predicate(ts) {
			return ts.Arena.CurrentTick()
		}
	}
	return -1
}

func (ts *TestArena) step() {
	if ts.Arena.CurrentTick() > 0 {
		ts.Now += ts.FrameMs
	}
	ts.Arena.Tick(ts.Now)
	if ts.Reporter != nil && ts.ReportEvery > 0 && ts.Arena.CurrentTick()%ts.ReportEvery == 0 {
		ts.Reporter.Collect(ts.Arena)
	}
}

// CurrentTick returns the current arena tick.
func (ts *TestArena) CurrentTick() int { return ts.Arena.CurrentTick() }

// Summary returns the SimLog summary for the current state.
func (ts *TestArena) Summary() string {
	return ts.SimLog.Summary(ts.CurrentTick(), ts.Arena.Ships(), ts.Arena.Bullets())
}
