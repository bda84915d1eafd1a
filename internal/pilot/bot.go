package pilot

import (
	"math"
	"math/rand"
)

// Bot timing, in ms of simulated time.
const (
	botMinLeg        = 400
	botMaxLeg        = 1600
	botMinBurst      = 150
	botMaxBurst      = 900
	botMaxCooldown   = 1200
	botDefaultRejoin = 1500
)

// Bot drives both pads of a session: it wanders on random headings, turns
// its turret freely, and fires in short bursts. With a non-negative
// RejoinAfter it re-enters the game that long after a game over.
type Bot struct {
	session *Session
	rng     *rand.Rand

	// RejoinAfter is the delay before rejoining; negative disables it.
	RejoinAfter float64

	nextLeg    float64
	burstEnd   float64
	nextBurst  float64
	gameOverAt float64
	sawOver    bool
}

// NewBot attaches a seeded bot to s. The pads are given unit size if unset.
func NewBot(s *Session, seed int64) *Bot {
	for _, p := range []*Pad{s.Move, s.Aim} {
		if _, _, r := p.Bounds(); r == 0 {
			p.SetSize(0, 0, 1)
		}
	}
	return &Bot{
		session:     s,
		rng:         rand.New(rand.NewSource(seed)), // #nosec G404 -- scripted behaviour, not security
		RejoinAfter: botDefaultRejoin,
	}
}

// Session returns the session the bot drives.
func (b *Bot) Session() *Session { return b.session }

// Step advances the bot's script to now (ms).
func (b *Bot) Step(now float64) error {
	s := b.session
	if !s.Joined() {
		if !s.GameOver() || b.RejoinAfter < 0 {
			return nil
		}
		if !b.sawOver {
			b.sawOver = true
			b.gameOverAt = now
		}
		if now-b.gameOverAt < b.RejoinAfter {
			return nil
		}
		b.sawOver = false
		b.nextLeg, b.burstEnd, b.nextBurst = 0, 0, 0
		return s.Rejoin()
	}

	// 1. MOVE: pick a new heading and throttle at the end of each leg.
	if now >= b.nextLeg {
		b.nextLeg = now + botMinLeg + b.rng.Float64()*(botMaxLeg-botMinLeg)
		if err := b.point(s.Move, b.rng.Float64()*2*math.Pi); err != nil {
			return err
		}
		var err error
		if b.rng.Intn(4) == 0 {
			err = s.Move.Release()
		} else {
			err = s.Move.Press()
		}
		if err != nil {
			return err
		}
	}

	// 2. FIRE: bursts separated by cooldowns, aim re-rolled for each burst.
	switch {
	case s.Aim.Pressed() && now >= b.burstEnd:
		b.nextBurst = now + b.rng.Float64()*botMaxCooldown
		return s.Aim.Release()
	case !s.Aim.Pressed() && now >= b.nextBurst:
		b.burstEnd = now + botMinBurst + b.rng.Float64()*(botMaxBurst-botMinBurst)
		if err := b.point(s.Aim, b.rng.Float64()*2*math.Pi); err != nil {
			return err
		}
		return s.Aim.Press()
	}
	return nil
}

// point aims p at heading (0 = up, clockwise) by touching its rim.
func (b *Bot) point(p *Pad, heading float64) error {
	cx, cy, r := p.Bounds()
	theta := heading - math.Pi/2
	return p.Point(cx+math.Cos(theta)*r, cy+math.Sin(theta)*r)
}
