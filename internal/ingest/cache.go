package ingest

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/nutrimon/internal/domain/model"
	"github.com/okian/nutrimon/pkg/logger"
	"github.com/okian/nutrimon/pkg/metrics"
)

const (
	defaultTTL = 10 * time.Minute
	// maxReloads bounds how often Get chases invalidations that land mid-load.
	maxReloads = 3
)

// Loader produces a fresh dataset. *Ingestor is the production implementation.
type Loader interface {
	Load(ctx context.Context) ([]model.UserRecord, model.Dataset, Stats)
}

// Snapshot is one immutable load result. Get hands out deep copies.
type Snapshot struct {
	Users      []model.UserRecord
	Dataset    model.Dataset
	Stats      Stats
	Generation uint64
	LoadedAt   time.Time
}

func (s *Snapshot) clone() Snapshot {
	out := *s
	out.Users = slices.Clone(s.Users)
	out.Dataset = s.Dataset.Clone()
	out.Stats.Skipped = slices.Clone(s.Stats.Skipped)
	return out
}

// Cache serves the ingested dataset for a bounded time and reloads it when
// the TTL expires or the generation counter moves.
type Cache struct {
	loader Loader
	ttl    time.Duration
	now    func() time.Time
	logger logger.Logger

	gen   atomic.Uint64
	mu    sync.RWMutex
	snap  *Snapshot
	group singleflight.Group
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL sets how long a snapshot is served without a reload.
func WithTTL(d time.Duration) CacheOption {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCacheLogger sets the cache logger.
func WithCacheLogger(l logger.Logger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCache creates a Cache over loader.
func NewCache(loader Loader, opts ...CacheOption) *Cache {
	c := &Cache{
		loader: loader,
		ttl:    defaultTTL,
		now:    time.Now,
		logger: logger.Get().Named("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generation returns the current generation. It only grows.
func (c *Cache) Generation() uint64 {
	return c.gen.Load()
}

// Invalidate bumps the generation so the next Get reloads. It returns the new
// generation. Any Get that starts after Invalidate returns observes data
// loaded after it.
func (c *Cache) Invalidate() uint64 {
	g := c.gen.Add(1)
	c.logger.Debug(context.Background(), "dataset invalidated", logger.Int64("generation", int64(g)))
	return g
}

func (c *Cache) fresh(s *Snapshot) bool {
	return s != nil && s.Generation == c.gen.Load() && c.now().Sub(s.LoadedAt) < c.ttl
}

// Get returns the current snapshot, reloading when it is missing, expired or
// invalidated. Concurrent reloads collapse into one. Cancelling ctx does not
// cut a reload short.
func (c *Cache) Get(ctx context.Context) Snapshot {
	c.mu.RLock()
	s := c.snap
	c.mu.RUnlock()
	if c.fresh(s) {
		metrics.RecordCacheHit()
		return s.clone()
	}

	// The load is shared by every waiting caller, so one caller going away
	// must not truncate what the others are served.
	loadCtx := context.WithoutCancel(ctx)
	for range maxReloads {
		v, _, _ := c.group.Do("load", func() (any, error) {
			return c.reload(loadCtx), nil
		})
		s = v.(*Snapshot)
		if s.Generation == c.gen.Load() {
			break
		}
	}
	return s.clone()
}

func (c *Cache) reload(ctx context.Context) *Snapshot {
	c.mu.RLock()
	cur := c.snap
	c.mu.RUnlock()
	if c.fresh(cur) {
		return cur
	}

	gen := c.gen.Load()
	start := time.Now()
	users, ds, stats := c.loader.Load(ctx)
	s := &Snapshot{Users: users, Dataset: ds, Stats: stats, Generation: gen, LoadedAt: c.now()}
	metrics.RecordCacheReload(float64(time.Since(start).Milliseconds()))

	c.mu.Lock()
	if c.snap == nil || c.snap.Generation <= gen {
		c.snap = s
	}
	c.mu.Unlock()
	return s
}

// Peek returns the cached snapshot without loading. ok is false when empty.
func (c *Cache) Peek() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return Snapshot{}, false
	}
	return c.snap.clone(), true
}
