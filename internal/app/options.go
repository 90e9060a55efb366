package service

import (
	"time"

	"github.com/okian/nutrimon/internal/adapters/remote"
	"github.com/okian/nutrimon/internal/adapters/repository"
	"github.com/okian/nutrimon/internal/config"
	"github.com/okian/nutrimon/internal/domain/analytics"
	"github.com/okian/nutrimon/internal/events"
	"github.com/okian/nutrimon/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig copies every sync, cache and analytics setting from cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg == nil {
			return
		}
		s.rootName = cfg.RemoteRootName
		s.usersName = cfg.UsersName
		s.iconPath = remote.PathSpec(cfg.IconPath)
		s.dataWorkers = cfg.DataWorkers
		s.iconWorkers = cfg.IconWorkers
		s.attempts = cfg.FetchAttempts
		s.retryDelay = cfg.FetchRetryDelay()
		s.fetchTimeout = cfg.FetchTimeout()
		s.listTimeout = cfg.ListTimeout()
		s.syncIconsEnabled = cfg.SyncIconsWithData
		s.cacheTTL = cfg.CacheTTL()
		s.watchDataDir = cfg.WatchDataDir
		s.ranges = analytics.Ranges{
			N: analytics.Range{Min: cfg.RangeNMin, Max: cfg.RangeNMax},
			P: analytics.Range{Min: cfg.RangePMin, Max: cfg.RangePMax},
			K: analytics.Range{Min: cfg.RangeKMin, Max: cfg.RangeKMax},
		}
	}
}

// WithRootName sets the exact name of the remote root folder.
func WithRootName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.rootName = name
		}
	}
}

// WithIconPath sets the folder names leading from the root to the icons.
func WithIconPath(names ...string) Option {
	return func(s *Service) {
		s.iconPath = remote.PathSpec(names)
	}
}

// WithWorkers sets the data and icon pool sizes. 1 means sequential.
func WithWorkers(data, icons int) Option {
	return func(s *Service) {
		if data > 0 {
			s.dataWorkers = data
		}
		if icons > 0 {
			s.iconWorkers = icons
		}
	}
}

// WithRetry sets the per-file attempt budget and the pause between attempts.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if delay >= 0 {
			s.retryDelay = delay
		}
	}
}

// WithSyncIcons toggles the icon pass at the end of a data sync.
func WithSyncIcons(enabled bool) Option {
	return func(s *Service) {
		s.syncIconsEnabled = enabled
	}
}

// WithRanges sets the optimal nutrient ranges.
func WithRanges(r analytics.Ranges) Option {
	return func(s *Service) {
		s.ranges = r
	}
}

// WithCacheTTL sets how long an ingested dataset is served.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cacheTTL = d
		}
	}
}

// WithWatch toggles watching the data directory for external changes.
func WithWatch(enabled bool) Option {
	return func(s *Service) {
		s.watchDataDir = enabled
	}
}

// WithBus sets the event bus sync completions are published on.
func WithBus(bus *events.Bus) Option {
	return func(s *Service) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// WithHistory sets the sync history store. The default keeps runs in memory.
func WithHistory(h repository.Store) Option {
	return func(s *Service) {
		if h != nil {
			s.history = h
		}
	}
}

// WithClock overrides time.Now for history timestamps and the cache.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
