package game

import (
	"fmt"
	"math/rand"

	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/datasync"
)

// RecordSource hands out record handles. datasync.Client satisfies it.
type RecordSource interface {
	Record(name string) datasync.Record
}

// ArenaConfig sizes the playfield.
type ArenaConfig struct {
	Width          float64
	Height         float64
	InitialBullets int
	Seed           int64
}

// DefaultArenaConfig is a 1280×720 field with the standard bullet prefill.
func DefaultArenaConfig() ArenaConfig {
	return ArenaConfig{Width: 1280, Height: 720, InitialBullets: InitialBullets, Seed: 1}
}

// ArenaOption configures optional arena collaborators.
type ArenaOption func(*Arena)

// WithRenderer sets the renderer that receives a Frame every tick.
func WithRenderer(r Renderer) ArenaOption {
	return func(a *Arena) { a.renderer = r }
}

// WithSimLog records arena events into l.
func WithSimLog(l *SimLog) ArenaOption {
	return func(a *Arena) { a.log = l }
}

// WithCombatFeed mirrors roster and combat events into f.
func WithCombatFeed(f *CombatFeed) ArenaOption {
	return func(a *Arena) { a.feed = f }
}

// WithScoreboard tallies shots, hits and kills into sb.
func WithScoreboard(sb *Scoreboard) ArenaOption {
	return func(a *Arena) { a.stats = sb }
}

// Arena owns the roster, the bullet pool and the frame sequence.
type Arena struct {
	cfg     ArenaConfig
	records RecordSource

	ships  []*Ship
	byName map[string]*Ship
	byID   map[ShipID]*Ship
	names  map[ShipID]string // every ID ever issued, for late kill credit
	nextID ShipID

	bullets *BulletPool
	rng     *rand.Rand

	renderer Renderer
	log      *SimLog
	feed     *CombatFeed
	stats    *Scoreboard

	membership Membership

	tick     int
	now      float64
	last     float64
	started  bool
	finished []*Ship
	frame    Frame
}

// NewArena creates an empty arena reading controls from records.
func NewArena(cfg ArenaConfig, records RecordSource, opts ...ArenaOption) *Arena {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		def := DefaultArenaConfig()
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	if cfg.InitialBullets < 0 {
		cfg.InitialBullets = 0
	}
	a := &Arena{
		cfg:     cfg,
		records: records,
		byName:  make(map[string]*Ship),
		byID:    make(map[ShipID]*Ship),
		names:   make(map[ShipID]string),
		bullets: NewBulletPool(cfg.Width, cfg.Height, cfg.InitialBullets),
		rng:     rand.New(rand.NewSource(cfg.Seed)), // #nosec G404 -- spawn positions only
		log:     NewSimLog(false),
	}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = NewSimLog(false)
	}
	a.bullets.OnSpawn = a.onSpawn
	a.bullets.OnHit = a.onHit
	a.frame = Frame{Width: cfg.Width, Height: cfg.Height}
	return a
}

// AddPlayer spawns a ship for name at a random point inside the central 80%
// of the field. It returns false if name already has a ship.
func (a *Arena) AddPlayer(name string) bool {
	if name == "" {
		return false
	}
	if _, ok := a.byName[name]; ok {
		a.log.AddVerbose(a.tick, name, LogRoster, EvJoinDuplicate, "already flying", 0)
		return false
	}
	x := a.cfg.Width * (0.1 + a.rng.Float64()*0.8)
	y := a.cfg.Height * (0.1 + a.rng.Float64()*0.8)

	a.nextID++
	id := a.nextID
	var rec datasync.Record
	if a.records != nil {
		rec = a.records.Record(PlayerRecord(name))
	}
	s := NewShip(id, name, x, y, rec, a.bullets, a.onExplosionDone)
	s.now = a.now
	a.ships = append(a.ships, s)
	a.byName[name] = s
	a.byID[id] = s
	a.names[id] = name

	a.log.Add(a.tick, name, LogRoster, EvJoin, fmt.Sprintf("spawned at (%.0f,%.0f)", x, y), float64(id))
	if a.feed != nil {
		a.feed.Add(a.tick, name, s.Tint(), name+" joined")
	}
	if a.stats != nil {
		a.stats.RecordJoin(name)
	}
	return true
}

// RemovePlayer drops name's ship at once and deletes its control record. It
// returns false if name has no ship.
func (a *Arena) RemovePlayer(name string) bool {
	s, ok := a.byName[name]
	if !ok {
		return false
	}
	a.removeShip(s, "offline")
	return true
}

// removeShip detaches s from the roster before deleting its record: with an
// in-process transport the delete can call straight back into the arena.
func (a *Arena) removeShip(s *Ship, reason string) {
	if cur, ok := a.byName[s.Name()]; !ok || cur != s {
		return
	}
	delete(a.byName, s.Name())
	delete(a.byID, s.ID())
	for i, other := range a.ships {
		if other == s {
			a.ships = append(a.ships[:i], a.ships[i+1:]...)
			break
		}
	}
	a.log.Add(a.tick, s.Name(), LogRoster, EvLeave, reason, float64(s.ID()))
	if a.feed != nil {
		a.feed.Add(a.tick, s.Name(), s.Tint(), fmt.Sprintf("%s left (%s)", s.Name(), reason))
	}
	if rec := s.Record(); rec != nil {
		if err := rec.Delete(); err != nil {
			a.log.Add(a.tick, s.Name(), LogRecord, EvDeleteFailed, err.Error(), 0)
		}
	}
}

func (a *Arena) onExplosionDone(s *Ship) {
	a.finished = append(a.finished, s)
}

func (a *Arena) onSpawn(owner ShipID) {
	name := a.names[owner]
	a.log.AddVerbose(a.tick, name, LogFire, EvShot, "", 0)
	if a.stats != nil && name != "" {
		a.stats.RecordShot(name)
	}
}

func (a *Arena) onHit(owner ShipID, target *Ship) {
	shooter := a.names[owner]
	a.log.Add(a.tick, target.Name(), LogCombat, EvHit,
		fmt.Sprintf("by %s (health %d)", shooter, target.Health()), float64(target.Health()))
	if a.stats != nil {
		a.stats.RecordHit(shooter, target.Name())
	}
	if !target.Destroyed() {
		return
	}
	a.log.Add(a.tick, target.Name(), LogCombat, EvDestroyed, "by "+shooter, float64(owner))
	if a.feed != nil {
		a.feed.Add(a.tick, target.Name(), target.Tint(), fmt.Sprintf("%s destroyed %s", shooter, target.Name()))
	}
	if a.stats != nil {
		a.stats.RecordKill(shooter, target.Name())
	}
}

// Tick runs one frame at time now (ms): ships update in roster order, ships
// whose explosion has finished are removed, bullets advance and hit-test, and
// the renderer receives the resulting Frame. The first tick has zero elapsed.
func (a *Arena) Tick(now float64) {
	elapsed := 0.0
	if a.started {
		elapsed = now - a.last
		if elapsed < 0 {
			elapsed = 0
		}
	}
	a.started = true
	a.last = now
	a.now = now
	a.tick++

	// 1. SHIPS: read controls, move, fire, flash decay, explosion progress.
	for _, s := range a.ships {
		s.Update(elapsed, now)
	}

	// 2. REAP: explosions that reached their last frame.
	if len(a.finished) > 0 {
		done := a.finished
		a.finished = nil
		for _, s := range done {
			a.removeShip(s, "destroyed")
		}
	}

	// 3. BULLETS: move, recycle, hit-test.
	a.bullets.Advance(a.ships)

	if a.log.Verbose() {
		for _, s := range a.ships {
			x, y := s.Position()
			a.log.AddVerbose(a.tick, s.Name(), LogMove, EvPosition, fmt.Sprintf("(%.1f,%.1f)", x, y), s.Speed())
		}
	}

	// 4. RENDER.
	a.frame = a.snapshot()
	if a.renderer != nil {
		a.renderer.Render(a.frame)
	}
}

func (a *Arena) snapshot() Frame {
	f := Frame{
		Tick:    a.tick,
		Time:    a.now,
		Width:   a.cfg.Width,
		Height:  a.cfg.Height,
		Ships:   make([]ShipView, len(a.ships)),
		Bullets: a.bullets.Views(),
	}
	for i, s := range a.ships {
		f.Ships[i] = s.View()
	}
	return f
}

// Attach starts m and routes its joins and leaves to AddPlayer and
// RemovePlayer. A previously attached source is stopped first.
func (a *Arena) Attach(m Membership) error {
	if a.membership != nil {
		a.membership.Stop()
		a.membership = nil
	}
	if err := m.Start(
		func(name string) { a.AddPlayer(name) },
		func(name string) { a.RemovePlayer(name) },
	); err != nil {
		return fmt.Errorf("attach membership: %w", err)
	}
	a.membership = m
	return nil
}

// Detach stops the attached membership source, if any.
func (a *Arena) Detach() {
	if a.membership != nil {
		a.membership.Stop()
		a.membership = nil
	}
}

// Ships returns the roster in update order.
func (a *Arena) Ships() []*Ship { return a.ships }

// Ship returns the ship flown by name.
func (a *Arena) Ship(name string) (*Ship, bool) {
	s, ok := a.byName[name]
	return s, ok
}

func (a *Arena) Bullets() *BulletPool { return a.bullets }
func (a *Arena) Frame() Frame         { return a.frame }
func (a *Arena) Config() ArenaConfig  { return a.cfg }
func (a *Arena) CurrentTick() int     { return a.tick }
func (a *Arena) Now() float64         { return a.now }
func (a *Arena) SimLog() *SimLog      { return a.log }

// Feed and Scoreboard return the optional collaborators, nil when unset.
func (a *Arena) Feed() *CombatFeed       { return a.feed }
func (a *Arena) Scoreboard() *Scoreboard { return a.stats }
