package http

import (
	"context"

	"github.com/patrickmlong/Data-Intensive-PML/internal/files"
	"github.com/patrickmlong/Data-Intensive-PML/internal/services"
	"github.com/patrickmlong/Data-Intensive-PML/internal/store"
)

// RunService starts and tracks pipeline runs
type RunService interface {
	StartRun(ctx context.Context, req services.RunRequest) (*store.RunRecord, error)
	GetRun(ctx context.Context, id string) (*store.RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]*store.RunRecord, error)
	CancelRun(ctx context.Context, id string) error
}

// DataService gives read access to the pipeline outputs
type DataService interface {
	GetDatasets(ctx context.Context) ([]files.DatasetFile, error)
	GetTables(ctx context.Context) ([]services.TableInfo, error)
	TablePath(ctx context.Context, name string) (string, error)
	PreviewTable(ctx context.Context, name string, limit int) (*services.TablePreview, error)
}

// HealthChecker reports service health
type HealthChecker interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}
