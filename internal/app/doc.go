// Package app wires the medclean HTTP service together and manages its
// lifecycle.
//
// # Initialization Flow
//
//  1. Resolve and create the data directory tree
//  2. Initialize OpenTelemetry providers
//  3. Open the run store (memory or SQLite)
//  4. Build the pipeline, data and health services and the websocket hub
//  5. Mount handlers and middleware on a chi router
//
// # Graceful Shutdown
//
// Run blocks until SIGINT or SIGTERM. Stop drains the HTTP server, cancels
// the run in progress and waits for its final status to be recorded,
// disconnects websocket clients, closes the run store and flushes telemetry.
//
// Initialization errors are returned to the caller; the package never calls
// os.Exit.
package app
