package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/nutrimon/pkg/logger"
)

// SQLiteStore keeps the history in a sqlite file through gorm.
type SQLiteStore struct {
	db   *gorm.DB
	opts *options
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens or creates the database at path and migrates the schema.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: create dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&SyncRun{}, &FileOutcome{}); err != nil {
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	o.logger.Debug(context.Background(), "history store opened", logger.String("path", path))
	return &SQLiteStore{db: db, opts: o}, nil
}

// Record implements Store.
func (s *SQLiteStore) Record(ctx context.Context, run SyncRun) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.StartedAt = run.StartedAt.UTC()
	run.FinishedAt = run.FinishedAt.UTC()
	for i := range run.Outcomes {
		run.Outcomes[i].ID = 0
		run.Outcomes[i].RunID = run.ID
	}
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return "", fmt.Errorf("history: record %s: %w", run.ID, err)
	}
	return run.ID, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (SyncRun, error) {
	var run SyncRun
	err := s.db.WithContext(ctx).Preload("Outcomes", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SyncRun{}, ErrNotFound
	}
	if err != nil {
		return SyncRun{}, fmt.Errorf("history: get %s: %w", id, err)
	}
	return run, nil
}

// Recent implements Store.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]SyncRun, error) {
	if err := s.opts.checkLimit(n); err != nil {
		return nil, err
	}
	var runs []SyncRun
	err := s.db.WithContext(ctx).Preload("Outcomes", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).Order("started_at desc").Limit(n).Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	return runs, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
