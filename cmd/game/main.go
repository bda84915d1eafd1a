package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/config"
	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/datasync"
	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/game"
	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	cfg, err := config.Load("game", os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	remote, err := datasync.Dial(ctx, cfg.SyncURL, log.Default())
	cancel()
	if err != nil {
		log.Fatal(err)
	}
	defer remote.Close()

	arena := game.NewArena(game.ArenaConfig{
		Width:          float64(cfg.Width),
		Height:         float64(cfg.Height),
		InitialBullets: cfg.InitialBullets,
		Seed:           cfg.Seed,
	}, remote,
		game.WithSimLog(game.NewSimLog(cfg.Verbose)),
		game.WithCombatFeed(game.NewCombatFeed()),
		game.WithScoreboard(game.NewScoreboard()),
	)
	membership, err := game.NewMembership(cfg.ArenaMembership(), remote)
	if err != nil {
		log.Fatal(err)
	}
	if err := arena.Attach(membership); err != nil {
		log.Fatal(err)
	}
	defer arena.Detach()

	g := game.New(arena, remote.Dispatch)
	ebiten.SetWindowTitle("Space Shooter")
	ebiten.SetWindowSize(g.WindowWidth(), g.WindowHeight())
	log.Printf("arena %dx%d on %s (membership=%s)", cfg.Width, cfg.Height, cfg.SyncURL, cfg.ArenaMembership())
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
