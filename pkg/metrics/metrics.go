package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Source Client
	SourceFetchedPlayersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bsl_source_fetched_players_total",
		Help: "The total number of player records fetched from the league API",
	})
	SourceFetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bsl_source_fetch_errors_total",
		Help: "The total number of failed league API fetches",
	})

	// Hometown Resolver
	HometownLookupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bsl_hometown_lookups_total",
		Help: "The total number of per-player hometown lookups attempted",
	})
	HometownLookupFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bsl_hometown_lookup_failures_total",
		Help: "The total number of per-player hometown lookups that failed",
	})
	HometownUnavailableTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bsl_hometown_unavailable_total",
		Help: "The total number of runs where the lookup source was fully unavailable",
	})

	// Pipeline
	PipelineRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bsl_pipeline_runs_total",
		Help: "The total number of pipeline runs started",
	})
	PipelineRunFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bsl_pipeline_run_failures_total",
		Help: "The total number of pipeline runs aborted before publishing",
	})
	PipelinePublishesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bsl_pipeline_publishes_total",
		Help: "The total number of canonical snapshots published",
	})
	PipelineRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bsl_pipeline_run_duration_seconds",
		Help:    "Wall-clock duration of complete pipeline runs",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	// Side effects after publish
	ArchiveErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bsl_archive_errors_total",
		Help: "The total number of failed Postgres archive writes",
	})
	NotifyErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bsl_notify_errors_total",
		Help: "The total number of failed run-summary publications to Kafka",
	})
)
