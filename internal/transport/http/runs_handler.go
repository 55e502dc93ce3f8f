package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
	"github.com/patrickmlong/Data-Intensive-PML/internal/middleware"
	"github.com/patrickmlong/Data-Intensive-PML/internal/services"
)

const (
	// DefaultRunListLimit is the page size of GET /api/runs
	DefaultRunListLimit = 20
	// MaxRunListLimit caps the limit query parameter
	MaxRunListLimit = 500
)

// RunsHandler handles pipeline run requests
type RunsHandler struct {
	service      RunService
	validator    *middleware.RequestValidator
	errorHandler *apperrors.ErrorHandler
	logger       *slog.Logger
}

// NewRunsHandler creates a new runs handler
func NewRunsHandler(service RunService, validator *middleware.RequestValidator, errorHandler *apperrors.ErrorHandler, logger *slog.Logger) *RunsHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RunsHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "runs")),
	}
}

// Routes returns a chi router for run endpoints
func (h *RunsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.StartRun)
	r.Get("/", h.ListRuns)
	r.Get("/{id}", h.GetRun)
	r.Post("/{id}/cancel", h.CancelRun)
	r.Delete("/{id}", h.CancelRun)
	return r
}

// StartRun handles POST /api/runs
func (h *RunsHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("runs-handler").Start(r.Context(), "runs_handler.start_run",
		trace.WithAttributes(
			attribute.String("request_id", middleware.GetRequestID(r.Context())),
		),
	)
	defer span.End()
	r = r.WithContext(ctx)

	var req services.RunRequest
	if !h.validator.DecodeJSON(w, r, &req) {
		span.SetAttributes(attribute.String("error.type", "request_validation"))
		return
	}

	rec, err := h.service.StartRun(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "start run failed")
		h.errorHandler.HandleError(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.String("run.id", rec.ID),
		attribute.StringSlice("run.datasets", rec.Datasets),
	)
	h.logger.InfoContext(ctx, "Pipeline run accepted",
		slog.String("run_id", rec.ID),
		slog.Any("datasets", rec.Datasets))

	w.Header().Set("Location", "/api/runs/"+rec.ID)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, rec)
}

// ListRuns handles GET /api/runs?limit=N
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.validator.QueryInt(w, r, "limit", 1, MaxRunListLimit, DefaultRunListLimit)
	if !ok {
		return
	}

	runs, err := h.service.ListRuns(r.Context(), limit)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun handles GET /api/runs/{id}
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, rec)
}

// CancelRun handles POST /api/runs/{id}/cancel and DELETE /api/runs/{id}
func (h *RunsHandler) CancelRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.CancelRun(r.Context(), id); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Pipeline run cancelled", slog.String("run_id", id))
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{
		"id":     id,
		"status": "cancelling",
	})
}
