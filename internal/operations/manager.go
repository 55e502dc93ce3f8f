package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/patrickmlong/Data-Intensive-PML/internal/infrastructure"
)

// Manager orchestrates operation execution
type Manager struct {
	registry *Registry
	config   *Config
	tracer   *OperationTracer
	logger   *slog.Logger

	// Active operations
	mu         sync.RWMutex
	operations map[string]*activeOperation
}

type activeOperation struct {
	state  *OperationState
	cancel context.CancelFunc
}

// NewManager creates a new operation manager. A nil tracer disables telemetry.
func NewManager(registry *Registry, config *Config, tracer *OperationTracer, logger *slog.Logger) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		registry:   registry,
		config:     config,
		tracer:     tracer,
		logger:     logger.With(slog.String("component", "operations")),
		operations: make(map[string]*activeOperation),
	}
}

// GetRegistry returns the registry for accessing registered steps
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}

// Execute runs the registered steps and returns once every step has
// finished, failed or been skipped
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	ctx = infrastructure.EnsureTraceID(ctx)

	state := NewOperationState(req.ID)

	steps, err := m.resolveSteps(req.Steps)
	if err != nil {
		m.logger.ErrorContext(ctx, "operation_steps_invalid",
			slog.String("operation_id", req.ID),
			slog.String("error", err.Error()))
		state.Fail(err)
		return m.createResponse(state), err
	}
	for _, step := range steps {
		state.SetStep(step.ID(), NewStepState(step.ID(), step.Name()))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.storeOperation(req.ID, &activeOperation{state: state, cancel: cancel})
	defer m.removeOperation(req.ID)

	runCtx, span := m.tracer.TraceOperationExecution(runCtx, req.ID, len(steps))
	m.logger.InfoContext(runCtx, "operation_started",
		slog.String("operation_id", req.ID),
		slog.Int("step_count", len(steps)),
		slog.String("execution_mode", string(m.config.ExecutionMode)))

	state.Start()
	err = m.executeGraph(runCtx, state, steps)

	switch {
	case err == nil:
		state.Complete()
		m.logger.InfoContext(runCtx, "operation_completed",
			slog.String("operation_id", req.ID),
			slog.Duration("duration", state.Duration()))
	case errors.Is(err, context.Canceled):
		state.Cancel(err)
		m.logger.WarnContext(runCtx, "operation_cancelled",
			slog.String("operation_id", req.ID))
	default:
		state.Fail(err)
		m.logger.ErrorContext(runCtx, "operation_failed",
			slog.String("operation_id", req.ID),
			slog.String("error", err.Error()),
			slog.Any("failed_steps", state.StepsWithStatus(StepStatusFailed)))
	}
	m.tracer.RecordOperationCompletion(runCtx, span, state.Duration(), state.GetStatus(), err)

	return m.createResponse(state), err
}

// resolveSteps returns the requested steps in dependency order
func (m *Manager) resolveSteps(requested []string) ([]Step, error) {
	ordered, err := m.registry.GetDependencyOrder()
	if err != nil {
		return nil, NewFatalError("invalid step graph", err)
	}
	if len(requested) == 0 {
		return ordered, nil
	}

	want := make(map[string]bool, len(requested))
	for _, id := range requested {
		if !m.registry.Has(id) {
			return nil, NewValidationError(id, fmt.Sprintf("requested step not found (available: %s)",
				strings.Join(m.registry.ListIDs(), ", ")))
		}
		want[id] = true
	}
	steps := make([]Step, 0, len(requested))
	for _, step := range ordered {
		if want[step.ID()] {
			steps = append(steps, step)
		}
	}
	return steps, nil
}

// executeGraph runs steps in waves. A wave holds every step whose
// dependencies inside this run have completed.
func (m *Manager) executeGraph(ctx context.Context, state *OperationState, steps []Step) error {
	inRun := make(map[string]bool, len(steps))
	for _, step := range steps {
		inRun[step.ID()] = true
	}

	remaining := steps
	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			m.skipRemaining(ctx, state, remaining, "operation cancelled")
			e := NewCancellationError(remaining[0].ID())
			e.Cause = err
			return e
		}

		var ready, waiting []Step
		for _, step := range remaining {
			if m.dependenciesMet(state, step, inRun) {
				ready = append(ready, step)
			} else {
				waiting = append(waiting, step)
			}
		}
		if len(ready) == 0 {
			m.skipRemaining(ctx, state, waiting, "dependencies not met")
			return NewDependencyError(waiting[0].ID(), "", "no runnable steps left")
		}

		if err := m.executeWave(ctx, state, ready); err != nil {
			reason := "operation stopped after a failed step"
			var opErr *OperationError
			if errors.As(err, &opErr) && opErr.Step != "" {
				reason = fmt.Sprintf("Dependency %s failed", opErr.Step)
				m.logBlocked(ctx, state, opErr.Step)
			}
			m.skipRemaining(ctx, state, waiting, reason)
			return err
		}
		remaining = waiting
	}
	return nil
}

// logBlocked records the steps that can no longer run because failed did
func (m *Manager) logBlocked(ctx context.Context, state *OperationState, failed string) {
	dependents := m.registry.GetDependents(failed)
	if len(dependents) == 0 {
		return
	}
	ids := make([]string, len(dependents))
	for i, step := range dependents {
		ids[i] = step.ID()
	}
	m.logger.WarnContext(ctx, "dependents_blocked",
		slog.String("operation_id", state.ID),
		slog.String("step", failed),
		slog.Any("dependents", ids))
}

func (m *Manager) executeWave(ctx context.Context, state *OperationState, steps []Step) error {
	if m.config.ExecutionMode == ExecutionModeSequential || len(steps) == 1 {
		for _, step := range steps {
			if err := m.executeStep(ctx, state, step); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if m.config.MaxConcurrency > 0 {
		g.SetLimit(m.config.MaxConcurrency)
	}
	for _, step := range steps {
		g.Go(func() error {
			return m.executeStep(gctx, state, step)
		})
	}
	return g.Wait()
}

func (m *Manager) dependenciesMet(state *OperationState, step Step, inRun map[string]bool) bool {
	for _, dep := range step.GetDependencies() {
		if !inRun[dep] {
			continue
		}
		depState := state.GetStep(dep)
		if depState == nil || depState.GetStatus() != StepStatusCompleted {
			return false
		}
	}
	return true
}

func (m *Manager) skipRemaining(ctx context.Context, state *OperationState, steps []Step, reason string) {
	for _, step := range steps {
		stepState := state.GetStep(step.ID())
		if stepState != nil && stepState.GetStatus() == StepStatusPending {
			stepState.Skip(reason)
			m.logger.InfoContext(ctx, "step_skipped",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.String("reason", reason))
		}
	}
}

// executeStep executes a single step with timeout and retry logic
func (m *Manager) executeStep(ctx context.Context, state *OperationState, step Step) error {
	stepState := state.GetStep(step.ID())
	if stepState == nil {
		return NewFatalError("step state not found", fmt.Errorf("step %s", step.ID()))
	}

	if err := step.Validate(state); err != nil {
		m.logger.WarnContext(ctx, "validation_failed",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.String("error", err.Error()))
		verr := NewValidationError(step.ID(), err.Error())
		stepState.Fail(verr)
		return verr
	}

	timeout := m.config.GetStepTimeout(step.ID())
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	retryConfig := m.config.RetryConfig
	if retryConfig.MaxAttempts < 1 {
		retryConfig.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retryConfig.MaxAttempts; attempt++ {
		stepState.Start()
		m.logger.InfoContext(ctx, "step_started",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("attempt", attempt))

		spanCtx, span := m.tracer.TraceStepExecution(stepCtx, state.ID, step.ID())
		start := time.Now()
		err := step.Execute(spanCtx, state)
		duration := time.Since(start)
		m.tracer.RecordStepCompletion(ctx, span, step.ID(), duration, rowsOf(stepState), err)

		if err == nil {
			stepState.Complete()
			attrs := []any{
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.Duration("duration", duration),
			}
			if output := outputOf(stepState); output != "" {
				attrs = append(attrs,
					slog.String("output", output),
					slog.Int("rows", rowsOf(stepState)))
			}
			m.logger.InfoContext(ctx, "step_completed", attrs...)
			return nil
		}

		m.logger.ErrorContext(ctx, "step_execution_failed",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))

		switch {
		case ctx.Err() != nil:
			e := NewCancellationError(step.ID())
			e.Cause = ctx.Err()
			stepState.Fail(e)
			return e
		case errors.Is(stepCtx.Err(), context.DeadlineExceeded):
			e := NewTimeoutError(step.ID(), timeout.String())
			e.Cause = err
			stepState.Fail(e)
			return e
		}

		lastErr = err
		if !IsRetryable(err) || attempt >= retryConfig.MaxAttempts {
			break
		}

		delay := calculateRetryDelay(attempt, retryConfig)
		m.logger.WarnContext(ctx, "step_retry",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-stepCtx.Done():
			e := NewTimeoutError(step.ID(), timeout.String())
			stepState.Fail(e)
			return e
		}
	}

	stepState.Fail(lastErr)
	return WrapError(lastErr, step.ID(), "step execution failed")
}

func rowsOf(s *StepState) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rows, ok := s.Metadata[MetadataRows].(int); ok {
		return rows
	}
	return 0
}

func outputOf(s *StepState) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	output, _ := s.Metadata[MetadataOutput].(string)
	return output
}

// calculateRetryDelay grows the delay geometrically, capped at MaxDelay
func calculateRetryDelay(attempt int, config RetryConfig) time.Duration {
	delay := config.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * config.Multiplier)
	}
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	return delay
}

// createResponse creates an operation response from state
func (m *Manager) createResponse(state *OperationState) *OperationResponse {
	snapshot := state.Clone()
	resp := &OperationResponse{
		ID:       snapshot.ID,
		Status:   snapshot.Status,
		Duration: snapshot.Duration(),
		Steps:    snapshot.Steps,
		Outputs:  snapshot.Outputs,
	}
	if t, ok := snapshot.GetTable(TableGeo); ok {
		resp.Rows, resp.Columns = t.Len(), t.Width()
	} else if t, ok := snapshot.GetTable(TableMerged); ok {
		resp.Rows, resp.Columns = t.Len(), t.Width()
	}
	if snapshot.Error != nil {
		resp.Error = snapshot.Error.Error()
	}
	return resp
}

// GetOperation retrieves a snapshot of a running operation
func (m *Manager) GetOperation(id string) (*OperationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	op, exists := m.operations[id]
	if !exists {
		return nil, fmt.Errorf("operation %s not found", id)
	}
	return op.state.Clone(), nil
}

// ListOperations returns snapshots of all running operations
func (m *Manager) ListOperations() []*OperationState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*OperationState, 0, len(m.operations))
	for _, op := range m.operations {
		out = append(out, op.state.Clone())
	}
	return out
}

// CancelOperation cancels a running operation. Execute returns once the
// active steps notice the cancellation.
func (m *Manager) CancelOperation(id string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	op, exists := m.operations[id]
	if !exists {
		return fmt.Errorf("operation %s not found", id)
	}
	op.cancel()
	return nil
}

func (m *Manager) storeOperation(id string, op *activeOperation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[id] = op
}

func (m *Manager) removeOperation(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.operations, id)
}
