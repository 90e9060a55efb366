// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Defaults live in New; Load layers .env, an optional YAML file and NUTRIMON_* env vars.
//   - External errors are wrapped with ErrLoadConfig, validation failures with ErrInvalidConfig.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Remote source kinds.
const (
	RemoteDrive = "drive"
	RemoteLocal = "local"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataDir holds users.csv and the measurement CSVs.
	DataDir string `koanf:"data_dir"`

	// AssetsDir holds crop icons and the optional logo.
	AssetsDir string `koanf:"assets_dir"`

	// RemoteKind picks the remote source: "drive" (API) or "local" (mounted folder).
	RemoteKind string `koanf:"remote_kind"`

	// RemoteRootName is the exact name of the remote root folder.
	RemoteRootName string `koanf:"remote_root_name"`

	// RemoteLocalPath is the directory that contains the root folder when RemoteKind is "local".
	RemoteLocalPath string `koanf:"remote_local_path"`

	// TokenFile is the OAuth token JSON used by the drive source.
	TokenFile string `koanf:"token_file"`

	// IconPath lists the folder names leading from the root to the icon folder.
	IconPath []string `koanf:"icon_path"`

	// UsersName is the logical name of the credentials file.
	UsersName string `koanf:"users_name"`

	// DataWorkers and IconWorkers bound the fetch pools. 1 means sequential.
	DataWorkers int `koanf:"data_workers"`
	IconWorkers int `koanf:"icon_workers"`

	// FetchAttempts is the per-file attempt budget; FetchRetryDelayMS the pause between attempts.
	FetchAttempts     int `koanf:"fetch_attempts"`
	FetchRetryDelayMS int `koanf:"fetch_retry_delay_ms"`

	// FetchTimeoutMS and ListTimeoutMS bound single remote calls.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`
	ListTimeoutMS  int `koanf:"list_timeout_ms"`

	// SyncIconsWithData runs an icon pass at the end of every data sync.
	SyncIconsWithData bool `koanf:"sync_icons_with_data"`

	// CacheTTLSeconds bounds how long an ingested dataset is served without a reload.
	CacheTTLSeconds int `koanf:"cache_ttl_s"`

	// WatchDataDir invalidates the dataset cache when local CSVs change.
	WatchDataDir bool `koanf:"watch_data_dir"`

	// HistoryDB is the sqlite file for sync history. Empty disables history.
	HistoryDB string `koanf:"history_db"`

	// JWTSecret signs dashboard tokens; JWTTTLSeconds is their lifetime.
	// Empty means a random per-process secret, so tokens do not survive a restart.
	JWTSecret     string `koanf:"jwt_secret"`
	JWTTTLSeconds int    `koanf:"jwt_ttl_s"`

	// CORSOrigins lists allowed browser origins for the query API.
	CORSOrigins []string `koanf:"cors_origins"`

	// Optimal nutrient ranges, inclusive.
	RangeNMin float64 `koanf:"range_n_min"`
	RangeNMax float64 `koanf:"range_n_max"`
	RangePMin float64 `koanf:"range_p_min"`
	RangePMax float64 `koanf:"range_p_max"`
	RangeKMin float64 `koanf:"range_k_min"`
	RangeKMax float64 `koanf:"range_k_max"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		DataDir:           "data",
		AssetsDir:         "assets",
		RemoteKind:        RemoteDrive,
		RemoteRootName:    "data app NPK",
		TokenFile:         "token.json",
		IconPath:          []string{"GrowerNutritionMonitor", "www"},
		UsersName:         "users",
		DataWorkers:       4,
		IconWorkers:       2,
		FetchAttempts:     3,
		FetchRetryDelayMS: 1000,
		FetchTimeoutMS:    60_000,
		ListTimeoutMS:     30_000,
		SyncIconsWithData: true,
		CacheTTLSeconds:   600,
		HistoryDB:         filepath.Join("data", ".sync_history.db"),
		JWTTTLSeconds:     86_400,
		CORSOrigins:       []string{"http://localhost:5173", "http://localhost:3000"},
		RangeNMin:         1.6,
		RangeNMax:         2.2,
		RangePMin:         0.06,
		RangePMax:         0.12,
		RangeKMin:         0.6,
		RangeKMax:         1.0,
	}
}

// FetchRetryDelay returns the pause between fetch attempts.
func (c *Config) FetchRetryDelay() time.Duration {
	return time.Duration(c.FetchRetryDelayMS) * time.Millisecond
}

// FetchTimeout returns the per-attempt fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

// ListTimeout returns the per-call listing timeout.
func (c *Config) ListTimeout() time.Duration {
	return time.Duration(c.ListTimeoutMS) * time.Millisecond
}

// CacheTTL returns the dataset cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// JWTTTL returns the lifetime of issued tokens.
func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLSeconds) * time.Second
}

// Placeholder secrets that must never sign tokens.
var weakSecrets = map[string]bool{"change_me": true, "changeme": true, "secret": true}

// MinJWTSecretLen is the shortest accepted jwt_secret.
const MinJWTSecretLen = 16

// Validate checks invariants that defaults alone cannot guarantee.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DataDir == "":
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	case c.AssetsDir == "":
		return fmt.Errorf("%w: assets_dir must not be empty", ErrInvalidConfig)
	case c.RemoteRootName == "":
		return fmt.Errorf("%w: remote_root_name must not be empty", ErrInvalidConfig)
	case c.DataWorkers < 1 || c.IconWorkers < 1:
		return fmt.Errorf("%w: worker counts must be at least 1", ErrInvalidConfig)
	case c.FetchAttempts < 1:
		return fmt.Errorf("%w: fetch_attempts must be at least 1", ErrInvalidConfig)
	case c.FetchRetryDelayMS < 0 || c.FetchTimeoutMS < 0 || c.ListTimeoutMS < 0:
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	case c.RangeNMin > c.RangeNMax, c.RangePMin > c.RangePMax, c.RangeKMin > c.RangeKMax:
		return fmt.Errorf("%w: range min must not exceed max", ErrInvalidConfig)
	case weakSecrets[strings.ToLower(c.JWTSecret)]:
		return fmt.Errorf("%w: jwt_secret is a placeholder value", ErrInvalidConfig)
	case c.JWTSecret != "" && len(c.JWTSecret) < MinJWTSecretLen:
		return fmt.Errorf("%w: jwt_secret must be at least %d bytes", ErrInvalidConfig, MinJWTSecretLen)
	}
	switch c.RemoteKind {
	case RemoteDrive:
	case RemoteLocal:
		if c.RemoteLocalPath == "" {
			return fmt.Errorf("%w: remote_local_path is required for remote_kind=local", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown remote_kind %q", ErrInvalidConfig, c.RemoteKind)
	}
	return nil
}
