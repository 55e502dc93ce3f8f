package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
)

// GormRunStore keeps runs in a SQL database through gorm
type GormRunStore struct {
	db *gorm.DB
}

var _ RunStore = (*GormRunStore)(nil)

// OpenSQLite opens (creating if needed) a sqlite database at dsn and
// migrates the runs table. ":memory:" gives a private in-memory database.
func OpenSQLite(dsn string) (*GormRunStore, error) {
	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, apperrors.NewStorageError("failed to create database directory", err).
				WithContext("dsn", dsn)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open run database", err).WithContext("dsn", dsn)
	}
	if dsn == ":memory:" {
		// Every pooled connection would see its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, apperrors.NewStorageError("failed to open run database", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return NewGormRunStore(db)
}

// NewGormRunStore wraps an open connection and migrates the runs table
func NewGormRunStore(db *gorm.DB) (*GormRunStore, error) {
	if err := db.AutoMigrate(&RunRecord{}); err != nil {
		return nil, apperrors.NewStorageError("failed to migrate runs table", err)
	}
	return &GormRunStore{db: db}, nil
}

// Create implements RunStore
func (s *GormRunStore) Create(ctx context.Context, run *RunRecord) error {
	rec := run.Clone()
	err := s.db.WithContext(ctx).Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.NewConflictError("run already exists").WithContext("run_id", run.ID)
	}
	if err != nil {
		return apperrors.NewStorageError("failed to create run", err).WithContext("run_id", run.ID)
	}
	return nil
}

// Update implements RunStore
func (s *GormRunStore) Update(ctx context.Context, run *RunRecord) error {
	rec := run.Clone()
	result := s.db.WithContext(ctx).Model(rec).Select("*").Omit("created_at").Updates(rec)
	if result.Error != nil {
		return apperrors.NewStorageError("failed to update run", result.Error).WithContext("run_id", run.ID)
	}
	if result.RowsAffected == 0 {
		return notFound(run.ID)
	}
	return nil
}

// Get implements RunStore
func (s *GormRunStore) Get(ctx context.Context, id string) (*RunRecord, error) {
	var rec RunRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("failed to load run", err).WithContext("run_id", id)
	}
	return &rec, nil
}

// List implements RunStore
func (s *GormRunStore) List(ctx context.Context, limit int) ([]*RunRecord, error) {
	q := s.db.WithContext(ctx).Order("started_at desc").Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*RunRecord
	if err := q.Find(&out).Error; err != nil {
		return nil, apperrors.NewStorageError("failed to list runs", err)
	}
	return out, nil
}

// Close releases the underlying connection
func (s *GormRunStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
