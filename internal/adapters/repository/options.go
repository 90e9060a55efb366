package repository

import "github.com/okian/nutrimon/pkg/logger"

// Option configures a history store.
type Option func(*options)

type options struct {
	logger   logger.Logger
	capacity int
	maxLimit int
}

func defaultOptions() *options {
	return &options{
		logger:   logger.Get().Named("history"),
		capacity: 100,
		maxLimit: 500,
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCapacity bounds how many runs the in-memory store keeps.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithMaxLimit caps the n accepted by Recent.
func WithMaxLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLimit = n
		}
	}
}

func (o *options) checkLimit(n int) error {
	if n <= 0 || n > o.maxLimit {
		return ErrInvalidLimit
	}
	return nil
}
