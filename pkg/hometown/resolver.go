package hometown

import (
	"context"
	"fmt"
	"strings"

	"github.com/benashkar/turkish-bsl/pkg/logger"
	"github.com/benashkar/turkish-bsl/pkg/metrics"
	"github.com/benashkar/turkish-bsl/pkg/retry"
	"github.com/benashkar/turkish-bsl/pkg/snapshot"
	"github.com/benashkar/turkish-bsl/pkg/worker"

	"go.uber.org/zap"
)

// Resolution is the outcome of one player's lookup. A non-empty
// FailureReason marks the lookup as failed; the merge engine then falls back
// to the previous canonical value.
type Resolution struct {
	Hometown      string `json:"hometown,omitempty"`
	College       string `json:"college,omitempty"`
	WikiTitle     string `json:"wiki_title,omitempty"`
	Source        string `json:"source,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// OK reports whether the lookup succeeded.
func (r Resolution) OK() bool {
	return r.FailureReason == ""
}

// Result covers every player id of the input snapshot. Unavailable means
// the lookup source was down for the whole run; the pipeline proceeds with
// carry-forward data only.
type Result struct {
	Unavailable bool                  `json:"unavailable"`
	Resolutions map[string]Resolution `json:"resolutions"`
}

// Resolver resolves hometowns for a raw snapshot via Wikipedia, fanning the
// per-player lookups over a bounded worker pool.
type Resolver struct {
	wiki      WikiAPI
	overrides map[string]Resolution
	workers   int
	logger    *logger.Logger
	pingOpts  retry.Options
}

// NewResolver creates a new Resolver
func NewResolver(wiki WikiAPI, workers int, l *logger.Logger) *Resolver {
	pingOpts := retry.DefaultOptions()
	pingOpts.MaxAttempts = 2

	return &Resolver{
		wiki:      wiki,
		overrides: make(map[string]Resolution),
		workers:   workers,
		logger:    l,
		pingOpts:  pingOpts,
	}
}

// SetOverride pins a player's resolution by name, for players with common
// names that match the wrong article.
func (r *Resolver) SetOverride(name string, res Resolution) {
	res.Source = "manual_override"
	r.overrides[strings.ToUpper(name)] = res
}

// Resolve attempts at most one lookup per player. Individual failures are
// recorded per player and never abort the run; a fully unreachable lookup
// source is reported once via Result.Unavailable.
func (r *Resolver) Resolve(ctx context.Context, raw *snapshot.Snapshot) Result {
	result := Result{Resolutions: make(map[string]Resolution, len(raw.Players))}
	if len(raw.Players) == 0 {
		return result
	}

	if err := retry.Do(ctx, func() error { return r.wiki.Ping(ctx) }, r.pingOpts); err != nil {
		r.logger.Warn("hometown lookup source unavailable, proceeding without enrichment", zap.Error(err))
		metrics.HometownUnavailableTotal.Inc()
		result.Unavailable = true
		for _, p := range raw.Players {
			result.Resolutions[p.PlayerID] = Resolution{FailureReason: "lookup source unavailable"}
		}
		return result
	}

	jobs := make([]worker.Job, len(raw.Players))
	for i, p := range raw.Players {
		jobs[i] = worker.Job{Key: p.PlayerID, Payload: p}
	}

	pool := worker.New(r.logger, r.workers, func(ctx context.Context, job worker.Job) (interface{}, error) {
		return r.lookup(ctx, job.Payload.(snapshot.PlayerRecord)), nil
	})

	var failed int
	for id, res := range pool.Run(ctx, jobs) {
		metrics.HometownLookupsTotal.Inc()

		resolution, ok := res.Value.(Resolution)
		if res.Err != nil || !ok {
			resolution = Resolution{FailureReason: fmt.Sprintf("lookup aborted: %v", res.Err)}
		}
		if !resolution.OK() {
			metrics.HometownLookupFailuresTotal.Inc()
			failed++
		}
		result.Resolutions[id] = resolution
	}

	r.logger.Info("hometown resolution finished",
		zap.Int("players", len(raw.Players)),
		zap.Int("failed", failed))
	return result
}

func (r *Resolver) lookup(ctx context.Context, p snapshot.PlayerRecord) Resolution {
	if ov, ok := r.overrides[strings.ToUpper(p.Name)]; ok {
		r.logger.Debug("using manual override", zap.String("player", p.Name))
		return ov
	}

	clean := CleanName(p.Name)

	title, err := r.wiki.Search(ctx, clean)
	if err != nil {
		return Resolution{FailureReason: fmt.Sprintf("search failed: %v", err)}
	}
	if title == "" {
		return Resolution{FailureReason: "no wikipedia article found"}
	}

	text, err := r.wiki.Wikitext(ctx, title)
	if err != nil {
		return Resolution{FailureReason: fmt.Sprintf("article fetch failed: %v", err)}
	}

	box := ParseInfobox(text)
	if !box.Found() {
		return Resolution{FailureReason: "no usable infobox data"}
	}

	res := Resolution{College: box.College, WikiTitle: title, Source: "wikipedia"}
	if box.City != "" && box.State != "" {
		res.Hometown = box.City + ", " + box.State
	}

	r.logger.Debug("resolved player",
		zap.String("player", clean),
		zap.String("hometown", res.Hometown),
		zap.String("college", res.College))
	return res
}
