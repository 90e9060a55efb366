// Package repository persists the history of sync runs.
package repository

import (
	"context"
	"time"
)

// Run kinds.
const (
	KindData  = "data"
	KindIcons = "icons"
)

// SyncRun is one sync pass and the per-file outcomes it produced.
type SyncRun struct {
	ID         string        `gorm:"primaryKey;size:36" json:"id"`
	Kind       string        `gorm:"index;not null" json:"kind"`
	StartedAt  time.Time     `gorm:"index;not null" json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	OK         bool          `json:"ok"`
	Message    string        `json:"message"`
	Files      int           `json:"files"`
	Failures   int           `json:"failures"`
	Outcomes   []FileOutcome `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"outcomes,omitempty"`
}

// FileOutcome is the result of fetching one target during a run.
type FileOutcome struct {
	ID        uint   `gorm:"primarykey" json:"-"`
	RunID     string `gorm:"index;size:36;not null" json:"-"`
	Target    string `gorm:"not null" json:"target"`
	RemoteID  string `json:"remote_id"`
	Bytes     int    `json:"bytes"`
	Hash      string `json:"hash,omitempty"`
	Attempts  int    `json:"attempts"`
	Unchanged bool   `json:"unchanged"`
	Error     string `json:"error,omitempty"`
}

// Duration is the wall time of the run.
func (r SyncRun) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store records and lists sync runs.
type Store interface {
	// Record stores run with its outcomes. An empty ID is assigned a UUID,
	// which is returned.
	Record(ctx context.Context, run SyncRun) (string, error)
	// Get returns one run by id, or ErrNotFound.
	Get(ctx context.Context, id string) (SyncRun, error)
	// Recent returns up to n runs, newest first.
	Recent(ctx context.Context, n int) ([]SyncRun, error)
	Close() error
}
