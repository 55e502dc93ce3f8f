// Package http implements the HTTP handlers of the medclean service.
// Handlers stay thin: they parse and validate the request, call a service
// and render the result.
//
// # Endpoints
//
//	POST   /api/runs              start a pipeline run (202)
//	GET    /api/runs              list recorded runs, newest first
//	GET    /api/runs/{id}         one run record
//	POST   /api/runs/{id}/cancel  cancel the run in progress
//	DELETE /api/runs/{id}         same as cancel
//	GET    /api/datasets          configured inputs and whether they are cleaned
//	GET    /api/tables            merged outputs present on disk
//	GET    /api/tables/{name}     preview as JSON or download as CSV
//	GET    /healthz               health, readiness and liveness checks
//	GET    /metrics               Prometheus scrape endpoint
//
// # Error Handling
//
// All errors follow RFC 7807 Problem Details:
//
//	{
//	    "type": "/errors/run/not-found",
//	    "title": "Resource Not Found",
//	    "status": 404,
//	    "detail": "run not found",
//	    "instance": "/api/runs/0d9f..."
//	}
//
// # Testing
//
// Handlers are tested with httptest against testify mocks of the service
// interfaces declared in interfaces.go.
package http
