// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

// tracelens-server ingests structured, trace-tagged log records and
// serves trace listing, reconstruction, and search over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/tracelens/tracelens/lib/clock"
	"github.com/tracelens/tracelens/lib/config"
	"github.com/tracelens/tracelens/lib/process"
	"github.com/tracelens/tracelens/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		showVersion bool
		configPath  string
	)
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.StringVar(&configPath, "config", "", "configuration file (default: $TRACELENS_CONFIG or built-in defaults)")
	flag.Parse()

	if showVersion {
		version.Print("tracelens-server")
		return nil
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := OpenStore(StoreConfig{
		Path:     cfg.Database.Path,
		PoolSize: cfg.Database.PoolSize,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	server := newServer(store, cfg, clock.Real(), logger)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.routes(),
	}

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- httpServer.ListenAndServe()
	}()

	logger.Info("tracelens server running",
		"addr", cfg.ListenAddr,
		"database", cfg.Database.Path,
	)

	select {
	case err := <-serveDone:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-serveDone; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Server is the HTTP-facing state: the store, the paging config, and
// ingest counters. Counters are atomics so the status handler reads
// them lock-free while ingest handlers write concurrently.
type Server struct {
	store     *Store
	cfg       *config.Config
	clock     clock.Clock
	logger    *slog.Logger
	startedAt time.Time

	batchesIngested atomic.Uint64
	rowsIngested    atomic.Uint64
	rowsRejected    atomic.Uint64
}

func newServer(store *Store, cfg *config.Config, clk clock.Clock, logger *slog.Logger) *Server {
	return &Server{
		store:     store,
		cfg:       cfg,
		clock:     clk,
		logger:    logger,
		startedAt: clk.Now(),
	}
}

// routes builds the request mux. The API surface is stable; the
// static UI is optional and mounted only when configured.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/ingest", s.handleIngest)
	mux.HandleFunc("GET /api/traces", s.handleListTraces)
	mux.HandleFunc("GET /api/trace/{id}", s.handleGetTrace)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/status", s.handleStatus)

	if s.cfg.StaticDir != "" {
		mux.Handle("GET /static/",
			http.StripPrefix("/static/", http.FileServer(http.Dir(s.cfg.StaticDir))))
		mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/static/index.html", http.StatusFound)
		})
	}
	return mux
}
