package worker

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/okian/nutrimon/internal/adapters/mq/queue"
	"github.com/okian/nutrimon/pkg/logger"
	"github.com/okian/nutrimon/pkg/metrics"
)

const defaultPoolSize = 1

// Processor handles one Job. *Fetcher is the production implementation.
type Processor interface {
	Fetch(ctx context.Context, job Job) Outcome
}

// Pool runs jobs across a bounded number of workers.
type Pool struct {
	proc   Processor
	name   string
	size   int
	logger logger.Logger
}

// NewPool creates a pool over proc with configuration options.
func NewPool(proc Processor, opts ...Option) *Pool {
	p := &Pool{
		proc:   proc,
		name:   "pool",
		size:   defaultPoolSize,
		logger: logger.Get().Named("pool"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named(p.name)
	return p
}

// Size returns the configured worker count.
func (p *Pool) Size() int { return p.size }

type indexedJob struct {
	idx int
	job Job
}

// Run processes every job and returns outcomes in input order. After ctx is
// cancelled no new job starts; jobs never started are reported as failed
// with the context error.
func (p *Pool) Run(ctx context.Context, jobs []Job) []Outcome {
	out := make([]Outcome, len(jobs))
	for i, j := range jobs {
		out[i] = Outcome{Job: j, Target: TargetName(j), Err: &FetchError{Target: TargetName(j), RemoteID: j.Ref.ID, Err: context.Canceled}}
	}
	if len(jobs) == 0 {
		return out
	}

	q := queue.NewInMemoryQueue[indexedJob](queue.WithCapacity(len(jobs)), queue.WithName(p.name))
	for i, j := range jobs {
		q.Enqueue(ctx, indexedJob{idx: i, job: j})
	}
	_ = q.Close()

	workers := min(p.size, len(jobs))
	p.logger.Debug(ctx, "pool starting", logger.Int("jobs", len(jobs)), logger.Int("workers", workers))

	var g errgroup.Group
	g.SetLimit(workers)
	for range workers {
		g.Go(func() error {
			for ij := range q.Dequeue(ctx) {
				metrics.UpdateWorkerActiveCount(p.name, 1)
				out[ij.idx] = p.proc.Fetch(ctx, ij.job)
				metrics.UpdateWorkerActiveCount(p.name, -1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		for i := range out {
			if out[i].Err != nil && out[i].Attempts == 0 {
				out[i].Err.Err = err
			}
		}
	}
	return out
}
