package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/patrickmlong/Data-Intensive-PML/internal/config"
	"github.com/patrickmlong/Data-Intensive-PML/internal/store"
)

// Health states
const (
	StatusOK       = "ok"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
	StatusAlive    = "alive"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	paths     *config.Paths
	runs      store.RunStore
	pipeline  *PipelineService
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a new health service. pipeline may be nil.
func NewHealthService(version string, paths *config.Paths, runs store.RunStore, pipeline *PipelineService, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		paths:     paths,
		runs:      runs,
		pipeline:  pipeline,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusOK,
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports whether the data directory and run store are usable
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    StatusReady,
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"data":  hs.checkDataHealth(),
			"store": hs.checkStoreHealth(ctx),
		},
	}
	for name, s := range status.Services {
		if s.Status != StatusReady {
			status.Status = StatusNotReady
			hs.logger.WarnContext(ctx, "Service not ready",
				slog.String("service", name),
				slog.String("message", s.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	rt := map[string]interface{}{
		"uptime":     time.Since(hs.startTime).Seconds(),
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
	}
	if hs.pipeline != nil {
		rt["active_run"] = hs.pipeline.ActiveRun()
	}
	return HealthStatus{
		Status:    StatusAlive,
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime:   rt,
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	return map[string]interface{}{
		"version":    hs.version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"uptime":     time.Since(hs.startTime).Seconds(),
		"start_time": hs.startTime.Format(time.RFC3339),
	}
}

func (hs *HealthService) checkDataHealth() ServiceHealth {
	info, err := os.Stat(hs.paths.BaseDir)
	if err != nil || !info.IsDir() {
		return ServiceHealth{
			Status:  StatusNotReady,
			Message: fmt.Sprintf("Data directory not found: %s", hs.paths.BaseDir),
		}
	}
	return ServiceHealth{Status: StatusReady}
}

func (hs *HealthService) checkStoreHealth(ctx context.Context) ServiceHealth {
	if hs.runs == nil {
		return ServiceHealth{Status: StatusNotReady, Message: "run store not initialized"}
	}
	if _, err := hs.runs.List(ctx, 1); err != nil {
		return ServiceHealth{Status: StatusNotReady, Message: err.Error()}
	}
	return ServiceHealth{Status: StatusReady}
}
