package operations

import (
	"sort"
	"sync"
	"time"

	"github.com/patrickmlong/Data-Intensive-PML/internal/table"
)

// OperationStatusValue represents the overall operation status enum
type OperationStatusValue string

// OperationStatus is an alias for OperationStatusValue
type OperationStatus = OperationStatusValue

const (
	OperationStatusPending   OperationStatusValue = "pending"
	OperationStatusRunning   OperationStatusValue = "running"
	OperationStatusCompleted OperationStatusValue = "completed"
	OperationStatusFailed    OperationStatusValue = "failed"
	OperationStatusCancelled OperationStatusValue = "cancelled"
)

// OperationState represents the complete state of an operation execution.
// Steps hand tables to each other through it.
type OperationState struct {
	mu sync.RWMutex

	ID        string               `json:"id"`
	Status    OperationStatusValue `json:"status"`
	StartTime time.Time            `json:"start_time"`
	EndTime   *time.Time           `json:"end_time,omitempty"`

	Steps   map[string]*StepState `json:"steps"`
	Outputs map[string]string     `json:"outputs"`

	tables map[string]*table.Table

	Error error `json:"-"`
}

// NewOperationState creates a new operation state
func NewOperationState(id string) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		Steps:     make(map[string]*StepState),
		Outputs:   make(map[string]string),
		tables:    make(map[string]*table.Table),
	}
}

// Start marks the operation as running
func (p *OperationState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = OperationStatusRunning
	p.StartTime = time.Now()
}

// Complete marks the operation as completed
func (p *OperationState) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCompleted
}

// Fail marks the operation as failed
func (p *OperationState) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusFailed
	p.Error = err
}

// Cancel marks the operation as cancelled
func (p *OperationState) Cancel(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCancelled
	p.Error = err
}

// GetStatus returns the current status
func (p *OperationState) GetStatus() OperationStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

// GetStep returns the state of a specific step
func (p *OperationState) GetStep(stepID string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Steps[stepID]
}

// SetStep updates the state of a specific step
func (p *OperationState) SetStep(stepID string, state *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Steps[stepID] = state
}

// SetTable stores a table produced by a step
func (p *OperationState) SetTable(name string, t *table.Table) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tables[name] = t
}

// GetTable returns a table produced by an earlier step
func (p *OperationState) GetTable(name string) (*table.Table, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.tables[name]
	return t, ok
}

// SetOutput records a file written by a step
func (p *OperationState) SetOutput(key, path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Outputs[key] = path
}

// Duration returns the duration of the operation execution
func (p *OperationState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.EndTime != nil {
		return p.EndTime.Sub(p.StartTime)
	}
	return time.Since(p.StartTime)
}

// StepsWithStatus returns the IDs of steps in the given status, sorted
func (p *OperationState) StepsWithStatus(status StepStatus) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var ids []string
	for id, s := range p.Steps {
		if s.GetStatus() == status {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Clone creates a copy of the operation state. Tables are shared.
func (p *OperationState) Clone() *OperationState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	clone := &OperationState{
		ID:        p.ID,
		Status:    p.Status,
		StartTime: p.StartTime,
		Steps:     make(map[string]*StepState, len(p.Steps)),
		Outputs:   make(map[string]string, len(p.Outputs)),
		tables:    make(map[string]*table.Table, len(p.tables)),
		Error:     p.Error,
	}
	if p.EndTime != nil {
		endTime := *p.EndTime
		clone.EndTime = &endTime
	}
	for k, v := range p.Steps {
		clone.Steps[k] = v.Clone()
	}
	for k, v := range p.Outputs {
		clone.Outputs[k] = v
	}
	for k, v := range p.tables {
		clone.tables[k] = v
	}
	return clone
}
