package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
	"github.com/patrickmlong/Data-Intensive-PML/internal/files"
	"github.com/patrickmlong/Data-Intensive-PML/internal/middleware"
	"github.com/patrickmlong/Data-Intensive-PML/internal/services"
)

// MaxPreviewLimit caps the limit query parameter of table previews
const MaxPreviewLimit = 10000

// TablesHandler serves the merged pipeline outputs
type TablesHandler struct {
	service      DataService
	validator    *middleware.RequestValidator
	errorHandler *apperrors.ErrorHandler
	logger       *slog.Logger
}

// NewTablesHandler creates a new tables handler
func NewTablesHandler(service DataService, validator *middleware.RequestValidator, errorHandler *apperrors.ErrorHandler, logger *slog.Logger) *TablesHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TablesHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "tables")),
	}
}

// Routes returns a chi router for table endpoints
func (h *TablesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListTables)
	r.Get("/{name}", h.GetTable)
	return r
}

// ListTables handles GET /api/tables
func (h *TablesHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.service.GetTables(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if tables == nil {
		tables = []services.TableInfo{}
	}
	render.JSON(w, r, map[string]interface{}{
		"tables": tables,
		"count":  len(tables),
	})
}

// ListDatasets handles GET /api/datasets
func (h *TablesHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.service.GetDatasets(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	missing := files.Missing(datasets)
	if missing == nil {
		missing = []string{}
	}
	render.JSON(w, r, map[string]interface{}{
		"datasets": datasets,
		"missing":  missing,
	})
}

// GetTable handles GET /api/tables/{name}?format=json|csv&limit=N
func (h *TablesHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	format, ok := h.validator.QueryEnum(w, r, "format", []string{"json", "csv"}, "json")
	if !ok {
		return
	}

	if format == "csv" {
		h.downloadTable(w, r, name)
		return
	}

	limit, ok := h.validator.QueryInt(w, r, "limit", 1, MaxPreviewLimit, services.DefaultPreviewLimit)
	if !ok {
		return
	}
	preview, err := h.service.PreviewTable(r.Context(), name, limit)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, preview)
}

func (h *TablesHandler) downloadTable(w http.ResponseWriter, r *http.Request, name string) {
	path, err := h.service.TablePath(r.Context(), name)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		h.errorHandler.HandleError(w, r, apperrors.NewStorageError("failed to open table", err).
			WithContext("table", name))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.errorHandler.HandleError(w, r, apperrors.NewStorageError("failed to stat table", err).
			WithContext("table", name))
		return
	}

	h.logger.DebugContext(r.Context(), "Serving table download",
		slog.String("table", name),
		slog.Int64("size", info.Size()))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}
