package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/patrickmlong/Data-Intensive-PML/internal/config"
	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
	"github.com/patrickmlong/Data-Intensive-PML/internal/infrastructure"
	"github.com/patrickmlong/Data-Intensive-PML/internal/operations"
	"github.com/patrickmlong/Data-Intensive-PML/internal/store"
)

// RunRequest selects what a pipeline run does
type RunRequest struct {
	// Datasets restricts the run to these dataset names. Empty runs all.
	Datasets []string `json:"datasets" validate:"omitempty,unique,dive,required"`
	// ExportXLSX overrides the configured workbook export
	ExportXLSX *bool `json:"export_xlsx,omitempty"`
}

// RunNotifier receives run records as they change state
type RunNotifier interface {
	PublishRun(ctx context.Context, rec *store.RunRecord)
}

// PipelineService starts pipeline runs and records them in the run store.
// At most one run is in progress at a time.
type PipelineService struct {
	cfg    *config.Config
	paths  *config.Paths
	runs   store.RunStore
	tracer *operations.OperationTracer
	logger *slog.Logger

	mu       sync.Mutex
	notifier RunNotifier
	active   string
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewPipelineService creates the service. A nil tracer disables telemetry.
func NewPipelineService(cfg *config.Config, paths *config.Paths, runs store.RunStore, tracer *operations.OperationTracer, logger *slog.Logger) *PipelineService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PipelineService{
		cfg:    cfg,
		paths:  paths,
		runs:   runs,
		tracer: tracer,
		logger: infrastructure.WithComponent(logger, "pipeline_service"),
	}
}

// SetNotifier registers n to receive run state changes
func (s *PipelineService) SetNotifier(n RunNotifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

func (s *PipelineService) notify(ctx context.Context, rec *store.RunRecord) {
	s.mu.Lock()
	n := s.notifier
	s.mu.Unlock()
	if n != nil {
		n.PublishRun(ctx, rec.Clone())
	}
}

// StartRun records a new run and executes it in the background. The run
// outlives ctx but keeps its values; it is bounded by the server run timeout.
func (s *PipelineService) StartRun(ctx context.Context, req RunRequest) (*store.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != "" {
		return nil, apperrors.NewConflictError("a pipeline run is already in progress").
			WithContext("run_id", s.active)
	}

	rec, manager, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	runCtx := context.WithoutCancel(ctx)
	var cancel context.CancelFunc
	if timeout := s.cfg.Server.RunTimeout; timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(runCtx)
	}
	s.active = rec.ID
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.finish(rec.ID)
		defer cancel()
		s.notify(runCtx, rec)
		_, _ = s.execute(runCtx, manager, rec.Clone())
	}()

	return rec, nil
}

// Run records a new run and executes it before returning
func (s *PipelineService) Run(ctx context.Context, req RunRequest) (*store.RunRecord, error) {
	s.mu.Lock()
	if s.active != "" {
		s.mu.Unlock()
		return nil, apperrors.NewConflictError("a pipeline run is already in progress").
			WithContext("run_id", s.active)
	}
	rec, manager, err := s.prepare(ctx, req)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.active = rec.ID
	s.cancel = cancel
	s.mu.Unlock()
	defer s.finish(rec.ID)

	s.notify(runCtx, rec)
	return s.execute(runCtx, manager, rec)
}

// prepare builds the step graph for req and stores the pending record
func (s *PipelineService) prepare(ctx context.Context, req RunRequest) (*store.RunRecord, *operations.Manager, error) {
	cfg := *s.cfg
	if req.ExportXLSX != nil {
		cfg.Pipeline.ExportXLSX = *req.ExportXLSX
	}

	registry, err := operations.BuildRegistry(&cfg, s.paths, req.Datasets, s.logger)
	if err != nil {
		return nil, nil, err
	}
	manager := operations.NewManager(registry, operations.ConfigFromPipeline(cfg.Pipeline), s.tracer, s.logger)

	datasets := req.Datasets
	if len(datasets) == 0 {
		for _, ds := range cfg.Pipeline.Datasets {
			datasets = append(datasets, ds.Name)
		}
	}

	rec := &store.RunRecord{
		ID:        uuid.NewString(),
		Status:    store.StatusRunning,
		Datasets:  datasets,
		StartedAt: time.Now().UTC(),
	}
	if err := s.runs.Create(ctx, rec); err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "Pipeline run started",
		slog.String("run_id", rec.ID),
		slog.Any("datasets", datasets),
		slog.Bool("export_xlsx", cfg.Pipeline.ExportXLSX))
	return rec, manager, nil
}

func (s *PipelineService) execute(ctx context.Context, manager *operations.Manager, rec *store.RunRecord) (*store.RunRecord, error) {
	resp, runErr := manager.Execute(ctx, operations.OperationRequest{ID: rec.ID})

	finished := time.Now().UTC()
	rec.FinishedAt = &finished
	rec.Status = string(resp.Status)
	rec.Rows, rec.Columns = resp.Rows, resp.Columns
	if path, ok := resp.Outputs[operations.OutputGeoCSV]; ok {
		rec.OutputPath = path
	} else if path, ok := resp.Outputs[operations.OutputMergedCSV]; ok {
		rec.OutputPath = path
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}

	if err := s.runs.Update(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.ErrorContext(ctx, "Failed to record run result",
			slog.String("run_id", rec.ID),
			slog.String("error", err.Error()))
		if runErr == nil {
			runErr = err
		}
	}

	s.notify(ctx, rec)

	log := s.logger.With(
		slog.String("run_id", rec.ID),
		slog.String("status", rec.Status),
		slog.Duration("duration", resp.Duration),
		slog.Int("rows", rec.Rows),
		slog.Int("columns", rec.Columns))
	if runErr != nil {
		log.ErrorContext(ctx, "Pipeline run finished with error", slog.String("error", runErr.Error()))
	} else {
		log.InfoContext(ctx, "Pipeline run finished", slog.String("output", rec.OutputPath))
	}
	return rec, runErr
}

func (s *PipelineService) finish(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == id {
		s.active = ""
		s.cancel = nil
	}
}

// ActiveRun returns the id of the run in progress, or ""
func (s *PipelineService) ActiveRun() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// CancelRun stops the run in progress. Finished runs give a CONFLICT error,
// unknown ones NOT_FOUND.
func (s *PipelineService) CancelRun(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.active == id && s.cancel != nil {
		s.cancel()
		s.mu.Unlock()
		s.logger.InfoContext(ctx, "Pipeline run cancellation requested", slog.String("run_id", id))
		return nil
	}
	s.mu.Unlock()

	if _, err := s.runs.Get(ctx, id); err != nil {
		return err
	}
	return apperrors.NewConflictError("run is not in progress").WithContext("run_id", id)
}

// GetRun returns one run record
func (s *PipelineService) GetRun(ctx context.Context, id string) (*store.RunRecord, error) {
	return s.runs.Get(ctx, id)
}

// ListRuns returns the newest runs first
func (s *PipelineService) ListRuns(ctx context.Context, limit int) ([]*store.RunRecord, error) {
	return s.runs.List(ctx, limit)
}

// Shutdown cancels the run in progress and waits for it to be recorded
func (s *PipelineService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
