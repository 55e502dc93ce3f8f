package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickmlong/Data-Intensive-PML/internal/infrastructure"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewStorageError("failed to write cleaned table", cause)

	assert.Equal(t, "[STORAGE] failed to write cleaned table: disk full", err.Error())
	assert.True(t, errors.Is(err, cause))

	plain := NewAppValidationError("bad pattern")
	assert.Equal(t, "[VALIDATION] bad pattern", plain.Error())
}

func TestIsType(t *testing.T) {
	wrapped := fmt.Errorf("run: %w", NewPipelineError("merge", fmt.Errorf("boom")))

	assert.True(t, IsType(wrapped, ErrTypePipeline))
	assert.False(t, IsType(wrapped, ErrTypeConfig))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrTypePipeline))
}

func TestNewPipelineError_Context(t *testing.T) {
	err := NewPipelineError("clean_spending", nil)

	assert.Equal(t, "clean_spending", err.Context["step"])
	assert.Equal(t, ErrTypePipeline, err.Type)
}

func TestErrorHandler_HandleError(t *testing.T) {
	h := NewErrorHandler(nil, false)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "validation",
			err:        NewAppValidationError("unknown dataset"),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
		},
		{
			name:       "run not found",
			err:        NewNotFoundError("run abc").WithContext("run_id", "abc"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeRunNotFound,
		},
		{
			name:       "table not found",
			err:        NewNotFoundError("table geo").WithContext("table", "geo"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeTableNotFound,
		},
		{
			name:       "conflict",
			err:        NewConflictError("a run is already in progress"),
			wantStatus: http.StatusConflict,
			wantType:   TypeRunInProgress,
		},
		{
			name:       "context cancelled",
			err:        fmt.Errorf("wrapped: %w", context.Canceled),
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "unknown error",
			err:        fmt.Errorf("something odd"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/runs/abc", nil)
			req = req.WithContext(infrastructure.WithTraceID(req.Context(), "trace-1"))
			rec := httptest.NewRecorder()

			h.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, "/api/runs/abc", body["instance"])
			assert.Equal(t, "trace-1", body["trace_id"])
		})
	}
}

func TestErrorHandler_HandleValidation(t *testing.T) {
	h := NewErrorHandler(nil, false)
	req := httptest.NewRequest(http.MethodPost, "/api/runs", nil)
	rec := httptest.NewRecorder()

	h.HandleValidation(rec, req, []ValidationError{{Field: "datasets", Message: "unknown dataset"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, TypeValidation, body["type"])
	assert.Len(t, body["errors"], 1)
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "", "/x").
		WithExtension("error_code", "NOT_FOUND")

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "NOT_FOUND", body["error_code"])
	assert.Equal(t, float64(404), body["status"])
	assert.NotContains(t, body, "detail")
}
