package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/benashkar/turkish-bsl/pkg/logger"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{Level: "error", ServiceName: "test"})
	require.NoError(t, err)
	return l
}

func TestPoolEveryJobGetsExactlyOneResult(t *testing.T) {
	l := testLogger(t)

	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("every job key appears once in the result map", prop.ForAll(
		func(jobCount, workers int) bool {
			jobs := make([]Job, jobCount)
			for i := range jobs {
				jobs[i] = Job{Key: fmt.Sprintf("job-%d", i), Payload: i}
			}

			pool := New(l, workers, func(ctx context.Context, job Job) (interface{}, error) {
				return job.Payload.(int) * 2, nil
			})
			results := pool.Run(context.Background(), jobs)

			if len(results) != jobCount {
				return false
			}
			for i := range jobs {
				r, ok := results[fmt.Sprintf("job-%d", i)]
				if !ok || r.Err != nil || r.Value.(int) != i*2 {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 50),
		gen.IntRange(1, 8),
	))
	properties.TestingRun(t)
}

func TestPoolConcurrencyBound(t *testing.T) {
	l := testLogger(t)
	const workers = 3

	var mu sync.Mutex
	var active, peak int

	jobs := make([]Job, 20)
	for i := range jobs {
		jobs[i] = Job{Key: fmt.Sprintf("job-%d", i)}
	}

	pool := New(l, workers, func(ctx context.Context, job Job) (interface{}, error) {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()

		mu.Lock()
		active--
		mu.Unlock()
		return nil, nil
	})

	pool.Run(context.Background(), jobs)
	assert.GreaterOrEqual(t, peak, 1)
	assert.LessOrEqual(t, peak, workers)
}

func TestPoolJobErrorsAreReported(t *testing.T) {
	l := testLogger(t)
	boom := errors.New("boom")

	pool := New(l, 2, func(ctx context.Context, job Job) (interface{}, error) {
		if strings.HasSuffix(job.Key, "bad") {
			return nil, boom
		}
		return "ok", nil
	})

	results := pool.Run(context.Background(), []Job{{Key: "good"}, {Key: "bad"}})
	assert.NoError(t, results["good"].Err)
	assert.ErrorIs(t, results["bad"].Err, boom)
}

func TestPoolCancelledContextStillCoversAllJobs(t *testing.T) {
	l := testLogger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := make([]Job, 10)
	for i := range jobs {
		jobs[i] = Job{Key: fmt.Sprintf("job-%d", i)}
	}

	pool := New(l, 2, func(ctx context.Context, job Job) (interface{}, error) {
		return "done", nil
	})
	results := pool.Run(ctx, jobs)

	require.Len(t, results, len(jobs))
	for key, r := range results {
		if r.Err != nil {
			assert.ErrorIs(t, r.Err, context.Canceled, "key %s", key)
		}
	}
}

func TestPoolClampsWorkerCount(t *testing.T) {
	l := testLogger(t)
	pool := New(l, 0, func(ctx context.Context, job Job) (interface{}, error) {
		return nil, nil
	})
	assert.Equal(t, 1, pool.workers)
}
