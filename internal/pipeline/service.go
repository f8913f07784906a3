package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/benashkar/turkish-bsl/pkg/archive"
	"github.com/benashkar/turkish-bsl/pkg/hometown"
	"github.com/benashkar/turkish-bsl/pkg/logger"
	"github.com/benashkar/turkish-bsl/pkg/merge"
	"github.com/benashkar/turkish-bsl/pkg/metrics"
	"github.com/benashkar/turkish-bsl/pkg/notifier"
	"github.com/benashkar/turkish-bsl/pkg/retry"
	"github.com/benashkar/turkish-bsl/pkg/snapshot"

	"go.uber.org/zap"
)

// Fetcher is the source client stage
type Fetcher interface {
	FetchPlayers(ctx context.Context) (*snapshot.Snapshot, error)
}

// Resolver is the hometown enrichment stage
type Resolver interface {
	Resolve(ctx context.Context, raw *snapshot.Snapshot) hometown.Result
}

// RunResult summarizes one pipeline run for the caller and the notifier.
type RunResult struct {
	RunID                 string    `json:"run_id"`
	Success               bool      `json:"success"`
	PlayerCount           int       `json:"player_count"`
	EnrichmentCoverage    float64   `json:"enrichment_coverage"`
	EnrichmentUnavailable bool      `json:"enrichment_unavailable"`
	GeneratedAt           time.Time `json:"generated_at"`
	DurationSeconds       float64   `json:"duration_seconds"`
}

// Service runs the fetch, enrich, merge stages strictly in order. One Run
// is one refresh; an external scheduler serializes runs.
type Service struct {
	logger      *logger.Logger
	fetcher     Fetcher
	resolver    Resolver
	store       snapshot.Store
	archiver    archive.Archiver
	notifier    notifier.Notifier
	gracePeriod time.Duration
	notifyOpts  retry.Options
}

// Option customizes a Service
type Option func(*Service)

// WithArchiver enables the Postgres history sink
func WithArchiver(a archive.Archiver) Option {
	return func(s *Service) { s.archiver = a }
}

// WithNotifier enables Kafka run-summary publication
func WithNotifier(n notifier.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithGracePeriod retains departed players inside the window
func WithGracePeriod(d time.Duration) Option {
	return func(s *Service) { s.gracePeriod = d }
}

// NewService creates a new pipeline Service
func NewService(l *logger.Logger, f Fetcher, r Resolver, store snapshot.Store, opts ...Option) *Service {
	s := &Service{
		logger:     l,
		fetcher:    f,
		resolver:   r,
		store:      store,
		notifyOpts: retry.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one pipeline run. Fatal errors abort before anything touches
// the canonical snapshot; enrichment trouble degrades to carry-forward data.
func (s *Service) Run(ctx context.Context) (RunResult, error) {
	start := time.Now()
	metrics.PipelineRunsTotal.Inc()

	// Stage 1: fetch. Unreachable or unmappable source data aborts the run.
	raw, err := s.fetcher.FetchPlayers(ctx)
	if err != nil {
		metrics.PipelineRunFailuresTotal.Inc()
		return RunResult{}, fmt.Errorf("fetch stage failed: %w", err)
	}
	runLog := s.logger.With(zap.String("run_id", raw.SourceRunID))

	// Stage 2: enrich. Never fatal; the side-file is diagnostic output.
	enrichment := s.resolver.Resolve(ctx, raw)
	if err := s.store.SaveEnrichment(ctx, raw.SourceRunID, enrichment); err != nil {
		runLog.Warn("failed to save enrichment side-file", zap.Error(err))
	}

	// A run aborted between stages must not promote partial artifacts.
	if ctx.Err() != nil {
		metrics.PipelineRunFailuresTotal.Inc()
		return RunResult{}, ctx.Err()
	}

	// Stage 3: merge against the previous canonical snapshot. An unreadable
	// previous snapshot is fatal: merging without it would silently drop
	// every carried-forward hometown.
	previous, err := s.store.LoadCanonical(ctx)
	if err != nil {
		metrics.PipelineRunFailuresTotal.Inc()
		return RunResult{}, fmt.Errorf("failed to load previous snapshot: %w", err)
	}

	merged, err := merge.Merge(raw, enrichment, previous, merge.Options{GracePeriod: s.gracePeriod})
	if err != nil {
		metrics.PipelineRunFailuresTotal.Inc()
		return RunResult{}, fmt.Errorf("merge stage failed: %w", err)
	}

	if err := s.store.PublishCanonical(ctx, merged); err != nil {
		metrics.PipelineRunFailuresTotal.Inc()
		return RunResult{}, fmt.Errorf("failed to publish canonical snapshot: %w", err)
	}
	metrics.PipelinePublishesTotal.Inc()

	result := RunResult{
		RunID:                 merged.SourceRunID,
		Success:               true,
		PlayerCount:           len(merged.Players),
		EnrichmentCoverage:    merge.Coverage(merged),
		EnrichmentUnavailable: enrichment.Unavailable,
		GeneratedAt:           merged.GeneratedAt,
		DurationSeconds:       time.Since(start).Seconds(),
	}

	// Post-publish side effects are best-effort; the run already succeeded.
	s.archiveRun(ctx, merged, runLog)
	s.notifyRun(ctx, result, runLog)

	metrics.PipelineRunDuration.Observe(time.Since(start).Seconds())
	runLog.Info("pipeline run published",
		zap.Int("players", result.PlayerCount),
		zap.Float64("enrichment_coverage", result.EnrichmentCoverage),
		zap.Bool("enrichment_unavailable", result.EnrichmentUnavailable))
	return result, nil
}

func (s *Service) archiveRun(ctx context.Context, snap *snapshot.Snapshot, runLog *logger.Logger) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.ArchiveRun(ctx, snap); err != nil {
		metrics.ArchiveErrorsTotal.Inc()
		runLog.Error("failed to archive run", err)
	}
}

func (s *Service) notifyRun(ctx context.Context, result RunResult, runLog *logger.Logger) {
	if s.notifier == nil {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		runLog.Error("failed to serialize run summary", err)
		return
	}

	err = retry.Do(ctx, func() error {
		res := <-s.notifier.PublishAsync(ctx, []byte(result.RunID), data)
		return res.Error
	}, s.notifyOpts)
	if err != nil {
		metrics.NotifyErrorsTotal.Inc()
		runLog.Error("failed to publish run summary", err)
	}
}
