// Package daemon coordinates the long-running dualsub process.
//
// It wires configuration, task storage, and the download orchestrator into a
// single lifecycle with flock-based locking to prevent multiple instances,
// runs crash recovery on startup, and serves the HTTP API that the CLI talks
// to. Orchestration of individual downloads lives in the orchestrator
// package; the daemon focuses on startup, shutdown, and the API surface.
package daemon
