package dedupe

import (
	"sync"
	"sync/atomic"
)

// Set records seen keys. Safe for concurrent use.
type Set struct {
	mu   sync.Mutex
	seen map[uint64]struct{}
	size atomic.Int64
}

// Option applies a configuration option to a Set.
type Option func(*setOptions)

type setOptions struct {
	capacity int
}

// WithCapacity presizes the set for n keys.
func WithCapacity(n int) Option {
	return func(o *setOptions) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// NewSet creates an empty Set.
func NewSet(opts ...Option) *Set {
	o := setOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	return &Set{seen: make(map[uint64]struct{}, o.capacity)}
}

// SeenAndRecord atomically checks if key was seen and records it if not.
// Returns true if key was already seen, false if it was newly recorded.
func (s *Set) SeenAndRecord(key uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return true
	}
	s.seen[key] = struct{}{}
	s.size.Add(1)
	return false
}

// Size returns the number of recorded keys.
func (s *Set) Size() int64 {
	return s.size.Load()
}
