package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/config"
	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/datasync"
)

func main() {
	cfg, err := config.Load("syncd", os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	logger := log.New(os.Stderr, "syncd ", log.LstdFlags)
	mux := http.NewServeMux()
	mux.Handle("/sync", datasync.NewServer(datasync.NewHub(), logger))

	srv := &http.Server{
		Addr:              cfg.SyncAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Printf("listening on %s/sync", cfg.SyncAddr)
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal(err)
	}
}
