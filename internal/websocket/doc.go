// Package websocket pushes pipeline run updates to connected clients.
//
// Clients connect to /ws and receive one "connection" message, then a
// "run:status" message every time a run starts or finishes. Messages from
// clients are read only to keep the connection alive.
package websocket
