package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps the newest runs in memory. It is used when no history
// database is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	runs   []SyncRun // oldest first
	closed bool
	opts   *options
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &MemoryStore{opts: o}
}

func cloneRun(r SyncRun) SyncRun {
	r.Outcomes = slices.Clone(r.Outcomes)
	return r
}

// Record implements Store.
func (s *MemoryStore) Record(_ context.Context, run SyncRun) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run = cloneRun(run)
	for i := range run.Outcomes {
		run.Outcomes[i].RunID = run.ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	s.runs = append(s.runs, run)
	if over := len(s.runs) - s.opts.capacity; over > 0 {
		s.runs = slices.Delete(s.runs, 0, over)
	}
	return run.ID, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.runs {
		if r.ID == id {
			return cloneRun(r), nil
		}
	}
	return SyncRun{}, ErrNotFound
}

// Recent implements Store.
func (s *MemoryStore) Recent(_ context.Context, n int) ([]SyncRun, error) {
	if err := s.opts.checkLimit(n); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SyncRun, 0, min(n, len(s.runs)))
	for i := len(s.runs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, cloneRun(s.runs[i]))
	}
	slices.SortStableFunc(out, func(a, b SyncRun) int { return b.StartedAt.Compare(a.StartedAt) })
	return out, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
