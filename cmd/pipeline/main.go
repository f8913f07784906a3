package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benashkar/turkish-bsl/internal/pipeline"
	"github.com/benashkar/turkish-bsl/pkg/archive"
	"github.com/benashkar/turkish-bsl/pkg/config"
	"github.com/benashkar/turkish-bsl/pkg/hometown"
	"github.com/benashkar/turkish-bsl/pkg/logger"
	"github.com/benashkar/turkish-bsl/pkg/notifier"
	"github.com/benashkar/turkish-bsl/pkg/server"
	"github.com/benashkar/turkish-bsl/pkg/snapshot"
	"github.com/benashkar/turkish-bsl/pkg/source"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// 1. Load config
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	l, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: "pipeline",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer l.Sync()

	l.Info("pipeline initializing", zap.String("env", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Snapshot store
	var store snapshot.Store
	if cfg.Snapshot.Backend == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Snapshot.RedisAddr})
		defer client.Close()
		store = snapshot.NewRedisStore(client, cfg.Snapshot.RedisPrefix)
	} else {
		store = snapshot.NewFileStore(cfg.Snapshot.Dir, cfg.Snapshot.KeepHistory)
	}

	// 4. Stage components
	fetcher := source.NewClient(source.Config{
		BaseURL:        cfg.Source.BaseURL,
		League:         cfg.Source.League,
		LeagueID:       cfg.Source.LeagueID,
		Season:         cfg.Source.Season,
		RequestTimeout: cfg.Source.RequestTimeout,
		RequestDelay:   cfg.Source.RequestDelay,
		MaxRetries:     cfg.Source.MaxRetries,
	}, store, l)

	wiki := hometown.NewWikiClient(hometown.WikiConfig{
		APIURL:        cfg.Hometown.APIURL,
		UserAgent:     cfg.Hometown.UserAgent,
		LookupTimeout: cfg.Hometown.LookupTimeout,
	}, l)
	resolver := hometown.NewResolver(wiki, cfg.Hometown.Workers, l)

	// 5. Optional sinks
	opts := []pipeline.Option{pipeline.WithGracePeriod(cfg.Snapshot.GracePeriod)}

	if cfg.Archive.PostgresURI != "" {
		archiver, err := archive.NewPostgresArchiver(ctx, archive.PostgresConfig{
			URI:      cfg.Archive.PostgresURI,
			MinConns: int32(cfg.Archive.MinConns),
			MaxConns: int32(cfg.Archive.MaxConns),
		}, l)
		if err != nil {
			l.Error("failed to connect to postgres", err)
			os.Exit(1)
		}
		defer archiver.Close()
		opts = append(opts, pipeline.WithArchiver(archiver))
	}

	if len(cfg.Notifier.Brokers) > 0 {
		kn := notifier.NewKafkaNotifier(notifier.Config{
			Brokers: cfg.Notifier.Brokers,
			Topic:   cfg.Notifier.Topic,
		})
		defer kn.Close()
		opts = append(opts, pipeline.WithNotifier(kn))
	}

	svc := pipeline.NewService(l, fetcher, resolver, store, opts...)

	// 6. Observability server for the duration of the run
	obsServer := server.New(":8080", l)
	go func() {
		if err := obsServer.Start(); err != nil {
			l.Error("observability server failed", err)
		}
	}()

	// 7. Run once; the external scheduler owns the refresh cadence
	l.Info("pipeline run starting")
	result, err := svc.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	obsServer.Shutdown(shutdownCtx)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			l.Info("pipeline run cancelled")
		} else {
			l.Error("pipeline run failed", err)
		}
		os.Exit(1)
	}

	l.Info("pipeline run complete",
		zap.String("run_id", result.RunID),
		zap.Int("players", result.PlayerCount),
		zap.Float64("enrichment_coverage", result.EnrichmentCoverage))
}
