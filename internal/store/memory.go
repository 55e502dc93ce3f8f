package store

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
)

// MemoryRunStore keeps runs in a map. Records are copied in and out.
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]*RunRecord
}

var _ RunStore = (*MemoryRunStore)(nil)

// NewMemoryRunStore creates an empty store
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: make(map[string]*RunRecord)}
}

// Create implements RunStore
func (s *MemoryRunStore) Create(ctx context.Context, run *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; ok {
		return apperrors.NewConflictError("run already exists").WithContext("run_id", run.ID)
	}
	s.runs[run.ID] = run.Clone()
	return nil
}

// Update implements RunStore
func (s *MemoryRunStore) Update(ctx context.Context, run *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; !ok {
		return notFound(run.ID)
	}
	s.runs[run.ID] = run.Clone()
	return nil
}

// Get implements RunStore
func (s *MemoryRunStore) Get(ctx context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, notFound(id)
	}
	return run.Clone(), nil
}

// List implements RunStore
func (s *MemoryRunStore) List(ctx context.Context, limit int) ([]*RunRecord, error) {
	s.mu.RLock()
	out := make([]*RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close implements RunStore
func (s *MemoryRunStore) Close() error {
	return nil
}
