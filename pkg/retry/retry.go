package retry

import (
	"context"
	"math"
	"time"
)

// Func is a function that can be retried
type Func func() error

// Classifier decides whether an error is worth retrying
type Classifier func(error) bool

// Options defines the retry policy
type Options struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Retryable       Classifier
}

// DefaultOptions returns a policy suited to the league and wiki APIs:
// a handful of attempts with exponential backoff, retrying everything.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:     3,
		InitialInterval: 2 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		Retryable: func(err error) bool {
			return true
		},
	}
}

// Do executes fn with exponential backoff until it succeeds, the policy is
// exhausted, or the context is cancelled.
func Do(ctx context.Context, fn Func, opts Options) error {
	var lastErr error
	interval := opts.InitialInterval

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if opts.Retryable != nil && !opts.Retryable(err) {
			return err
		}
		if attempt == opts.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
			next := float64(interval) * opts.Multiplier
			if next > float64(opts.MaxInterval) {
				interval = opts.MaxInterval
			} else {
				interval = time.Duration(next)
			}
		}
	}

	return lastErr
}

// Backoff returns the wait interval preceding a specific attempt number.
func Backoff(attempt int, opts Options) time.Duration {
	if attempt <= 1 {
		return opts.InitialInterval
	}
	interval := float64(opts.InitialInterval) * math.Pow(opts.Multiplier, float64(attempt-1))
	if interval > float64(opts.MaxInterval) {
		return opts.MaxInterval
	}
	return time.Duration(interval)
}
