// Package services sits between the HTTP handlers and the pipeline.
//
// PipelineService starts runs (in the background for the API, in the
// foreground for the CLI), allows one run at a time and records every run
// in a store.RunStore. DataService serves the merged outputs. HealthService
// backs the health endpoints.
//
// Services return *errors.AppError values so handlers can map them to
// problem details: VALIDATION for bad input, NOT_FOUND for unknown runs or
// tables not yet written, CONFLICT when a run is already in progress.
package services
