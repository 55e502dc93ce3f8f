package http

import (
	"net/http"

	"github.com/go-chi/render"
)

// MetricsHandler exposes the Prometheus registry fed by the OTel meter provider
type MetricsHandler struct {
	prometheus http.Handler
}

// NewMetricsHandler wraps the exporter handler. A nil handler means the
// metric exporter is disabled.
func NewMetricsHandler(prometheus http.Handler) *MetricsHandler {
	return &MetricsHandler{prometheus: prometheus}
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.prometheus == nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{
			"status": "disabled",
			"detail": "metric exporter is not set to prometheus",
		})
		return
	}
	h.prometheus.ServeHTTP(w, r)
}
