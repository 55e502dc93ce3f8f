// Package operations runs the cleaning pipeline as a graph of steps.
//
// Core components:
//
// Step: a single unit of work with an ID, a display name and the IDs of the
// steps it depends on. Steps exchange tables through the OperationState.
//
// Registry: holds the steps of one pipeline and orders them by dependency
// (Kahn's algorithm, ties broken by registration order).
//
// Manager: executes the registry. Steps whose dependencies are complete run
// together, either one at a time or concurrently under an errgroup. A failed
// step cancels its siblings and marks every dependent step skipped.
//
// The default pipeline built by BuildRegistry is
//
//	prepare → clean_<dataset> (one per dataset, concurrent) → merge → region
//
// Example usage:
//
//	registry, err := operations.BuildRegistry(cfg, paths, nil, logger)
//	if err != nil {
//		return err
//	}
//	manager := operations.NewManager(registry, operations.NewConfig(), tracer, logger)
//	resp, err := manager.Execute(ctx, operations.OperationRequest{})
package operations
