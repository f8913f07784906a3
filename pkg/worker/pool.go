package worker

import (
	"context"
	"sync"

	"github.com/benashkar/turkish-bsl/pkg/logger"

	"go.uber.org/zap"
)

// Job is one unit of lookup work, keyed so results can be aggregated into a
// mapping regardless of completion order.
type Job struct {
	Key     string
	Payload interface{}
}

// Result is the outcome of one job
type Result struct {
	Key   string
	Value interface{}
	Err   error
}

// DoFunc performs one lookup
type DoFunc func(ctx context.Context, job Job) (interface{}, error)

// Pool fans a fixed job list out over a bounded set of goroutines. It exists
// purely to cut wall-clock latency against slow external sources; nothing in
// the pipeline depends on completion order.
type Pool struct {
	logger  *logger.Logger
	workers int
	fn      DoFunc
}

// New creates a Pool running at most workers lookups concurrently
func New(l *logger.Logger, workers int, fn DoFunc) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{logger: l, workers: workers, fn: fn}
}

// Run executes all jobs and returns the results keyed by Job.Key. Jobs not
// started before ctx is cancelled are reported with ctx.Err().
func (p *Pool) Run(ctx context.Context, jobs []Job) map[string]Result {
	jobChan := make(chan Job)
	resultChan := make(chan Result, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.logger.Debug("lookup worker started", zap.Int("worker_id", id))
			for job := range jobChan {
				value, err := p.fn(ctx, job)
				resultChan <- Result{Key: job.Key, Value: value, Err: err}
			}
		}(i)
	}

	go func() {
		defer close(jobChan)
		for _, job := range jobs {
			select {
			case jobChan <- job:
			case <-ctx.Done():
				resultChan <- Result{Key: job.Key, Err: ctx.Err()}
			}
		}
	}()

	results := make(map[string]Result, len(jobs))
	for i := 0; i < len(jobs); i++ {
		r := <-resultChan
		results[r.Key] = r
	}
	wg.Wait()

	return results
}
