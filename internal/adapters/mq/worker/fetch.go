// Package worker copies remote files into local storage with retries and runs
// those copies across bounded worker pools.
package worker

import (
	"context"
	"strings"
	"time"

	"github.com/okian/nutrimon/internal/adapters/remote"
	"github.com/okian/nutrimon/internal/domain/model"
	"github.com/okian/nutrimon/internal/domain/naming"
	"github.com/okian/nutrimon/pkg/logger"
	"github.com/okian/nutrimon/pkg/metrics"
)

// Default fetch configuration constants.
const (
	defaultAttempts   = 3
	defaultRetryDelay = time.Second
	defaultTimeout    = 60 * time.Second
)

// Job is one remote item to copy to Dir/Target.
type Job struct {
	Ref    model.RemoteFileRef
	Target string
	Dir    string
	Kind   model.LocalFileKind
}

// Outcome is the result of one Job.
type Outcome struct {
	Job       Job
	Target    string // final local name
	Attempts  int
	Bytes     int
	Hash      uint64
	Unchanged bool
	Err       *FetchError
}

// OK reports whether the file is present locally with the fetched content.
func (o Outcome) OK() bool { return o.Err == nil }

// Writer persists fetched bytes.
type Writer interface {
	WriteAtomic(dir, name string, data []byte) (hash uint64, unchanged bool, err error)
}

// Fetcher downloads or exports one remote item and writes it atomically.
type Fetcher struct {
	src        remote.Source
	store      Writer
	attempts   int
	retryDelay time.Duration
	timeout    time.Duration
	logger     logger.Logger
}

// NewFetcher creates a Fetcher with configuration options.
func NewFetcher(src remote.Source, store Writer, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		src:        src,
		store:      store,
		attempts:   defaultAttempts,
		retryDelay: defaultRetryDelay,
		timeout:    defaultTimeout,
		logger:     logger.Get().Named("fetch"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// TargetName returns the local name for job. Spreadsheet exports always end in .csv.
func TargetName(job Job) string {
	name := job.Target
	if name == "" {
		name = job.Ref.Name
	}
	if job.Ref.Kind == model.KindSpreadsheet && !strings.HasSuffix(strings.ToLower(name), naming.CSVExt) {
		name += naming.CSVExt
	}
	return name
}

// Fetch runs up to the attempt budget sequentially. Cancellation of ctx stops
// further attempts. On failure the previous local file is left untouched.
func (f *Fetcher) Fetch(ctx context.Context, job Job) Outcome {
	kind := job.Kind.String()
	start := time.Now()
	out := Outcome{Job: job, Target: TargetName(job)}
	defer func() {
		metrics.RecordFetchLatency(float64(time.Since(start).Milliseconds()))
	}()

	lastErr := error(ErrNoAttempts)
	for attempt := 1; attempt <= f.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		out.Attempts = attempt
		metrics.RecordFetchAttempt(kind)

		data, err := f.transfer(ctx, job)
		if err == nil {
			var hash uint64
			var unchanged bool
			hash, unchanged, err = f.store.WriteAtomic(job.Dir, out.Target, data)
			if err == nil {
				out.Bytes, out.Hash, out.Unchanged = len(data), hash, unchanged
				if !unchanged {
					metrics.RecordFetchBytes(int64(len(data)))
				}
				metrics.RecordFetch(kind, "ok")
				f.logger.Debug(ctx, "fetched",
					logger.String("target", out.Target),
					logger.Int("bytes", len(data)),
					logger.Int("attempts", attempt),
					logger.Bool("unchanged", unchanged))
				return out
			}
		}

		lastErr = err
		f.logger.Warn(ctx, "fetch attempt failed",
			logger.String("target", out.Target),
			logger.String("remote_id", job.Ref.ID),
			logger.Int("attempt", attempt),
			logger.Error(err))

		if attempt < f.attempts && !sleep(ctx, f.retryDelay) {
			lastErr = ctx.Err()
			break
		}
	}

	metrics.RecordFetch(kind, "failed")
	out.Err = &FetchError{Target: out.Target, RemoteID: job.Ref.ID, Attempts: out.Attempts, Err: lastErr}
	f.logger.Error(ctx, "fetch failed", logger.String("target", out.Target), logger.Error(out.Err))
	return out
}

func (f *Fetcher) transfer(ctx context.Context, job Job) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	if job.Ref.Kind == model.KindSpreadsheet {
		return f.src.Export(ctx, job.Ref.ID, model.MimeCSV)
	}
	return f.src.Download(ctx, job.Ref.ID)
}

// sleep waits d or until ctx is done. Returns false when ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
