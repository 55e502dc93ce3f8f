package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
	"github.com/patrickmlong/Data-Intensive-PML/internal/files"
	"github.com/patrickmlong/Data-Intensive-PML/internal/middleware"
	"github.com/patrickmlong/Data-Intensive-PML/internal/services"
	"github.com/patrickmlong/Data-Intensive-PML/internal/store"
)

// MockRunService is a mock implementation of RunService
type MockRunService struct {
	mock.Mock
}

func (m *MockRunService) StartRun(ctx context.Context, req services.RunRequest) (*store.RunRecord, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.RunRecord), args.Error(1)
}

func (m *MockRunService) GetRun(ctx context.Context, id string) (*store.RunRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.RunRecord), args.Error(1)
}

func (m *MockRunService) ListRuns(ctx context.Context, limit int) ([]*store.RunRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.RunRecord), args.Error(1)
}

func (m *MockRunService) CancelRun(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockDataService is a mock implementation of DataService
type MockDataService struct {
	mock.Mock
}

func (m *MockDataService) GetTables(ctx context.Context) ([]services.TableInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.TableInfo), args.Error(1)
}

func (m *MockDataService) GetDatasets(ctx context.Context) ([]files.DatasetFile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]files.DatasetFile), args.Error(1)
}

func (m *MockDataService) TablePath(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *MockDataService) PreviewTable(ctx context.Context, name string, limit int) (*services.TablePreview, error) {
	args := m.Called(ctx, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TablePreview), args.Error(1)
}

// MockHealthChecker is a mock implementation of HealthChecker
type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *MockHealthChecker) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *MockHealthChecker) LivenessCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *MockHealthChecker) Version() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupRouter(t *testing.T) (chi.Router, *MockRunService, *MockDataService, *MockHealthChecker) {
	t.Helper()
	runs := &MockRunService{}
	data := &MockDataService{}
	health := &MockHealthChecker{}

	eh := apperrors.NewErrorHandler(testLogger(), false)
	rv := middleware.NewRequestValidator(eh)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Mount("/api/runs", NewRunsHandler(runs, rv, eh, testLogger()).Routes())
	tables := NewTablesHandler(data, rv, eh, testLogger())
	r.Mount("/api/tables", tables.Routes())
	r.Get("/api/datasets", tables.ListDatasets)
	r.Mount("/healthz", NewHealthHandler(health, testLogger()).Routes())

	t.Cleanup(func() {
		runs.AssertExpectations(t)
		data.AssertExpectations(t)
		health.AssertExpectations(t)
	})
	return r, runs, data, health
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRunsHandler_StartRun(t *testing.T) {
	r, runs, _, _ := setupRouter(t)

	rec := &store.RunRecord{
		ID:        "run-1",
		Status:    store.StatusRunning,
		Datasets:  []string{"spending"},
		StartedAt: time.Now(),
	}
	runs.On("StartRun", mock.Anything, services.RunRequest{Datasets: []string{"spending"}}).Return(rec, nil).Once()

	resp := do(r, http.MethodPost, "/api/runs", `{"datasets":["spending"]}`)
	assert.Equal(t, http.StatusAccepted, resp.Code)
	assert.Equal(t, "/api/runs/run-1", resp.Header().Get("Location"))

	body := decode(t, resp)
	assert.Equal(t, "run-1", body["id"])
	assert.Equal(t, store.StatusRunning, body["status"])
}

func TestRunsHandler_StartRunEmptyBody(t *testing.T) {
	r, runs, _, _ := setupRouter(t)

	runs.On("StartRun", mock.Anything, services.RunRequest{}).
		Return(&store.RunRecord{ID: "run-2", Status: store.StatusRunning}, nil).Once()

	resp := do(r, http.MethodPost, "/api/runs", "")
	assert.Equal(t, http.StatusAccepted, resp.Code)
}

func TestRunsHandler_StartRunErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantType   string
	}{
		{
			name:       "malformed json",
			body:       `{"datasets":`,
			wantStatus: http.StatusBadRequest,
			wantType:   apperrors.TypeValidation,
		},
		{
			name:       "duplicate datasets",
			body:       `{"datasets":["spending","spending"]}`,
			wantStatus: http.StatusBadRequest,
			wantType:   apperrors.TypeValidation,
		},
		{
			name:       "already running",
			body:       `{}`,
			serviceErr: apperrors.NewConflictError("a pipeline run is already in progress"),
			wantStatus: http.StatusConflict,
			wantType:   apperrors.TypeRunInProgress,
		},
		{
			name:       "unknown dataset",
			body:       `{"datasets":["weather"]}`,
			serviceErr: apperrors.NewAppValidationError("unknown dataset: weather"),
			wantStatus: http.StatusBadRequest,
			wantType:   apperrors.TypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, runs, _, _ := setupRouter(t)
			if tt.serviceErr != nil {
				runs.On("StartRun", mock.Anything, mock.Anything).Return(nil, tt.serviceErr).Once()
			}

			resp := do(r, http.MethodPost, "/api/runs", tt.body)
			assert.Equal(t, tt.wantStatus, resp.Code)
			assert.Equal(t, tt.wantType, decode(t, resp)["type"])
		})
	}
}

func TestRunsHandler_ListRuns(t *testing.T) {
	r, runs, _, _ := setupRouter(t)

	records := []*store.RunRecord{{ID: "b"}, {ID: "a"}}
	runs.On("ListRuns", mock.Anything, DefaultRunListLimit).Return(records, nil).Once()
	runs.On("ListRuns", mock.Anything, 5).Return(records[:1], nil).Once()

	resp := do(r, http.MethodGet, "/api/runs", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(2), decode(t, resp)["count"])

	resp = do(r, http.MethodGet, "/api/runs?limit=5", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(1), decode(t, resp)["count"])

	resp = do(r, http.MethodGet, "/api/runs?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestRunsHandler_GetRun(t *testing.T) {
	r, runs, _, _ := setupRouter(t)

	runs.On("GetRun", mock.Anything, "run-1").
		Return(&store.RunRecord{ID: "run-1", Status: store.StatusCompleted, Rows: 3}, nil).Once()
	runs.On("GetRun", mock.Anything, "missing").
		Return(nil, apperrors.NewNotFoundError("run").WithContext("run_id", "missing")).Once()

	resp := do(r, http.MethodGet, "/api/runs/run-1", "")
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode(t, resp)
	assert.Equal(t, store.StatusCompleted, body["status"])
	assert.Equal(t, float64(3), body["rows"])

	resp = do(r, http.MethodGet, "/api/runs/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, apperrors.TypeRunNotFound, decode(t, resp)["type"])
}

func TestRunsHandler_CancelRun(t *testing.T) {
	r, runs, _, _ := setupRouter(t)

	runs.On("CancelRun", mock.Anything, "run-1").Return(nil).Twice()
	runs.On("CancelRun", mock.Anything, "done").
		Return(apperrors.NewConflictError("run is not in progress")).Once()

	resp := do(r, http.MethodPost, "/api/runs/run-1/cancel", "")
	assert.Equal(t, http.StatusAccepted, resp.Code)
	assert.Equal(t, "cancelling", decode(t, resp)["status"])

	resp = do(r, http.MethodDelete, "/api/runs/run-1", "")
	assert.Equal(t, http.StatusAccepted, resp.Code)

	resp = do(r, http.MethodDelete, "/api/runs/done", "")
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestTablesHandler_ListTables(t *testing.T) {
	r, _, data, _ := setupRouter(t)

	data.On("GetTables", mock.Anything).Return(nil, nil).Once()

	resp := do(r, http.MethodGet, "/api/tables", "")
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode(t, resp)
	assert.Equal(t, float64(0), body["count"])
	assert.Equal(t, []interface{}{}, body["tables"])
}

func TestTablesHandler_ListDatasets(t *testing.T) {
	r, _, data, _ := setupRouter(t)

	data.On("GetDatasets", mock.Anything).Return([]files.DatasetFile{
		{Name: "general_info", Present: true, Cleaned: true},
		{Name: "spending", Present: false},
	}, nil).Once()

	resp := do(r, http.MethodGet, "/api/datasets", "")
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode(t, resp)
	assert.Len(t, body["datasets"], 2)
	assert.Equal(t, []interface{}{"spending"}, body["missing"])
}

func TestTablesHandler_Preview(t *testing.T) {
	r, _, data, _ := setupRouter(t)

	preview := &services.TablePreview{
		Name:      "geo",
		Columns:   []string{"provider_id", "region"},
		Rows:      []map[string]interface{}{{"provider_id": "10001", "region": nil}},
		TotalRows: 1,
	}
	data.On("PreviewTable", mock.Anything, "geo", services.DefaultPreviewLimit).Return(preview, nil).Once()
	data.On("PreviewTable", mock.Anything, "merged", 2).
		Return(nil, apperrors.NewNotFoundError("table").WithContext("table", "merged")).Once()

	resp := do(r, http.MethodGet, "/api/tables/geo", "")
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode(t, resp)
	assert.Equal(t, float64(1), body["total_rows"])
	rows := body["rows"].([]interface{})
	assert.Nil(t, rows[0].(map[string]interface{})["region"])

	resp = do(r, http.MethodGet, "/api/tables/merged?limit=2", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, apperrors.TypeTableNotFound, decode(t, resp)["type"])

	resp = do(r, http.MethodGet, "/api/tables/geo?format=parquet", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTablesHandler_DownloadCSV(t *testing.T) {
	r, _, data, _ := setupRouter(t)

	path := filepath.Join(t.TempDir(), "geo.csv")
	content := "provider_id,region\n10001,US/Central\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	data.On("TablePath", mock.Anything, "geo").Return(path, nil).Once()

	resp := do(r, http.MethodGet, "/api/tables/geo?format=csv", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Header().Get("Content-Disposition"), `filename="geo.csv"`)
	assert.Equal(t, content, resp.Body.String())
}

func TestHealthHandler(t *testing.T) {
	r, _, _, health := setupRouter(t)

	health.On("HealthCheck", mock.Anything).Return(services.HealthStatus{Status: services.StatusOK}).Once()
	health.On("LivenessCheck", mock.Anything).Return(services.HealthStatus{Status: services.StatusAlive}).Once()
	health.On("ReadinessCheck", mock.Anything).Return(services.HealthStatus{Status: services.StatusReady}).Once()
	health.On("ReadinessCheck", mock.Anything).Return(services.HealthStatus{
		Status:   services.StatusNotReady,
		Services: map[string]services.ServiceHealth{"store": {Status: "unhealthy"}},
	}).Once()

	resp := do(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, services.StatusOK, decode(t, resp)["status"])

	resp = do(r, http.MethodGet, "/healthz/live", "")
	assert.Equal(t, services.StatusAlive, decode(t, resp)["status"])

	resp = do(r, http.MethodGet, "/healthz/ready", "")
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = do(r, http.MethodGet, "/healthz/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, services.StatusNotReady, decode(t, resp)["status"])
}

func TestMetricsHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMetricsHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	prom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pipeline_runs_total 1\n"))
	})
	rec = httptest.NewRecorder()
	NewMetricsHandler(prom).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte("pipeline_runs_total")))
}
