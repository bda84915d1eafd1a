package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/config"
	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/datasync"
	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/game"
	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/pilot"
	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/termview"
	"github.com/gdamore/tcell/v2"
)

// localURL runs the arena and its bots on an in-process hub instead of syncd.
const localURL = "local"

func main() {
	cfg, err := config.Load("spectate", os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if err := run(cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}

func run(cfg config.Config) error {
	arenaClient, botClient, closeAll, err := connect(cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	view := termview.New(screen)
	scoreboard := game.NewScoreboard()
	arena := game.NewArena(game.ArenaConfig{
		Width:          float64(cfg.Width),
		Height:         float64(cfg.Height),
		InitialBullets: cfg.InitialBullets,
		Seed:           cfg.Seed,
	}, arenaClient,
		game.WithRenderer(view),
		game.WithSimLog(game.NewSimLog(cfg.Verbose)),
		game.WithScoreboard(scoreboard),
	)
	membership, err := game.NewMembership(cfg.ArenaMembership(), arenaClient)
	if err != nil {
		return err
	}
	if err := arena.Attach(membership); err != nil {
		return err
	}
	defer arena.Detach()

	announce, err := pilot.AnnounceFor(cfg.Membership)
	if err != nil {
		return err
	}
	bots := make([]*pilot.Bot, 0, cfg.Bots)
	for i := 0; i < cfg.Bots; i++ {
		s := pilot.NewSession(botClient, announce)
		if err := s.Join(fmt.Sprintf("bot%d", i+1)); err != nil {
			return err
		}
		bots = append(bots, pilot.NewBot(s, cfg.Seed+int64(i)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for {
			switch ev := screen.PollEvent().(type) {
			case nil:
				return
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
					cancel()
					return
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		}
	}()

	start := time.Now()
	clock := func() float64 { return float64(time.Since(start)) / float64(time.Millisecond) }
	pump := func() int {
		n := arenaClient.Dispatch()
		if botClient != arenaClient {
			n += botClient.Dispatch()
		}
		now := clock()
		for _, b := range bots {
			if err := b.Step(now); err != nil {
				view.SetStatus(err.Error())
			}
		}
		if top := scoreboard.Ranked(); len(top) > 0 {
			view.SetStatus(fmt.Sprintf("lead: %s (%d kills)  q quits", top[0].Name, top[0].Kills))
		}
		return n
	}
	loop := &game.Loop{Arena: arena, Pump: pump, Clock: clock}
	return loop.Run(ctx)
}

// connect returns the arena's client and the client the bots share, plus a
// function closing both.
func connect(cfg config.Config) (datasync.Client, datasync.Client, func(), error) {
	if cfg.SyncURL == localURL {
		hub := datasync.NewHub()
		a, b := hub.Connect(), hub.Connect()
		return a, b, func() { _ = b.Close(); _ = a.Close() }, nil
	}
	dial := func() (*datasync.Remote, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return datasync.Dial(ctx, cfg.SyncURL, log.Default())
	}
	a, err := dial()
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.Bots == 0 {
		return a, a, func() { _ = a.Close() }, nil
	}
	b, err := dial()
	if err != nil {
		_ = a.Close()
		return nil, nil, nil, err
	}
	return a, b, func() { _ = b.Close(); _ = a.Close() }, nil
}
