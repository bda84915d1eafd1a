package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/config"
	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/datasync"
	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/pilot"
	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	cfg, err := config.Load("pilot", os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if cfg.Name == "" {
		log.Fatal("pilot: -name (or SPACESHOOTER_NAME) is required")
	}
	announce, err := pilot.AnnounceFor(cfg.Membership)
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

	session := pilot.NewSession(remote, announce)
	session.OnGameOver(func() { log.Printf("%s: game over", cfg.Name) })
	if err := session.Join(cfg.Name); err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := session.Leave(); err != nil {
			log.Printf("leave: %v", err)
		}
	}()

	w, h := pilot.WindowSize()
	ebiten.SetWindowTitle("Space Shooter: " + cfg.Name)
	ebiten.SetWindowSize(w, h)
	if err := ebiten.RunGame(pilot.NewWindow(session, remote.Dispatch)); err != nil {
		log.Print(err)
	}
}
