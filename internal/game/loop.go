package game

import (
	"context"
	"time"
)

// DefaultFrameInterval paces the headless loop at roughly 60 frames a second.
const DefaultFrameInterval = time.Second / 60

// Loop drives an arena without a window: every interval it pumps pending
// transport callbacks, then ticks the arena at the current clock time.
type Loop struct {
	Arena    *Arena
	Pump     func() int     // e.g. Client.Dispatch; may be nil
	Interval time.Duration  // defaults to DefaultFrameInterval
	Clock    func() float64 // ms; defaults to wall time since Run started
}

// Step runs a single frame.
func (l *Loop) Step() {
	if l.Clock == nil {
		l.startClock()
	}
	if l.Pump != nil {
		l.Pump()
	}
	l.Arena.Tick(l.Clock())
}

func (l *Loop) startClock() {
	start := time.Now()
	l.Clock = func() float64 {
		return float64(time.Since(start)) / float64(time.Millisecond)
	}
}

// Run steps until ctx is cancelled and returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	if l.Clock == nil {
		l.startClock()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.Step()
		}
	}
}
