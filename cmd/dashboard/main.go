package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"

	"github.com/benashkar/turkish-bsl/pkg/config"
	"github.com/benashkar/turkish-bsl/pkg/logger"
	"github.com/benashkar/turkish-bsl/pkg/server"
	"github.com/benashkar/turkish-bsl/pkg/snapshot"

	"github.com/redis/go-redis/v9"
)

// The dashboard is a pure reader: it serves whatever canonical snapshot the
// pipeline last published and never writes. A failed pipeline run leaves it
// showing stale-but-valid data.
func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	l, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: "dashboard",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer l.Sync()

	var store snapshot.Store
	if cfg.Snapshot.Backend == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Snapshot.RedisAddr})
		defer client.Close()
		store = snapshot.NewRedisStore(client, cfg.Snapshot.RedisPrefix)
	} else {
		store = snapshot.NewFileStore(cfg.Snapshot.Dir, cfg.Snapshot.KeepHistory)
	}

	playersHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap, err := store.LoadCanonical(r.Context())
		if err != nil {
			l.Error("failed to load canonical snapshot", err)
			http.Error(w, "snapshot unavailable", http.StatusInternalServerError)
			return
		}
		if snap == nil {
			http.Error(w, "no snapshot published yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snap)
	})

	srv := server.New(cfg.Dashboard.Addr, l,
		server.WithHandler("/api/players", playersHandler),
		server.WithReadyCheck(func() error {
			_, err := store.LoadCanonical(context.Background())
			return err
		}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("dashboard server failed", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}
