package worker

import (
	"time"

	"github.com/okian/nutrimon/pkg/logger"
)

// FetcherOption applies a configuration option to a Fetcher.
type FetcherOption func(*Fetcher)

// WithAttempts sets the per-file attempt budget.
func WithAttempts(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.attempts = n
		}
	}
}

// WithRetryDelay sets the fixed pause between attempts.
func WithRetryDelay(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d >= 0 {
			f.retryDelay = d
		}
	}
}

// WithTimeout bounds each transfer attempt. Zero disables the bound.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d >= 0 {
			f.timeout = d
		}
	}
}

// WithFetchLogger sets a custom logger for the fetcher.
func WithFetchLogger(l logger.Logger) FetcherOption {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// Option applies a configuration option to a Pool.
type Option func(*Pool)

// WithName sets the pool name for identification, logging and metrics.
func WithName(name string) Option {
	return func(p *Pool) {
		if name != "" {
			p.name = name
		}
	}
}

// WithSize sets the number of concurrent workers. 1 runs jobs sequentially.
func WithSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.size = n
		}
	}
}

// WithLogger sets a custom logger for the pool.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}
