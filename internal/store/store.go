// Package store keeps the history of pipeline runs.
package store

import (
	"context"
	"time"

	"github.com/patrickmlong/Data-Intensive-PML/internal/config"
	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
)

// Run statuses recorded by the service
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// RunRecord is one pipeline run
type RunRecord struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	Status     string     `gorm:"size:16;index" json:"status"`
	Datasets   []string   `gorm:"serializer:json" json:"datasets"`
	StartedAt  time.Time  `gorm:"index" json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
	Rows       int        `json:"rows"`
	Columns    int        `json:"columns"`
	OutputPath string     `json:"output_path,omitempty"`
	CreatedAt  time.Time  `json:"-"`
	UpdatedAt  time.Time  `json:"-"`
}

// Finished reports whether the run reached a terminal status
func (r *RunRecord) Finished() bool {
	switch r.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Clone returns a copy that shares nothing with r
func (r *RunRecord) Clone() *RunRecord {
	c := *r
	c.Datasets = append([]string(nil), r.Datasets...)
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}

// RunStore persists run records. Get and Update return a NOT_FOUND error for
// unknown ids; Create returns a CONFLICT error for a duplicate id. List
// returns the newest runs first, at most limit of them when limit > 0.
type RunStore interface {
	Create(ctx context.Context, run *RunRecord) error
	Update(ctx context.Context, run *RunRecord) error
	Get(ctx context.Context, id string) (*RunRecord, error)
	List(ctx context.Context, limit int) ([]*RunRecord, error)
	Close() error
}

// Open creates the store selected by cfg. An empty sqlite DSN uses the
// runs database under the data directory.
func Open(cfg config.StoreConfig, paths *config.Paths) (RunStore, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryRunStore(), nil
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = paths.RunsDB
		}
		return OpenSQLite(dsn)
	default:
		return nil, apperrors.NewConfigError("unknown store driver "+cfg.Driver, nil)
	}
}

func notFound(id string) error {
	return apperrors.NewNotFoundError("run").WithContext("run_id", id)
}
