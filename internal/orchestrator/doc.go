// Package orchestrator drives download tasks end to end: dedup-aware
// creation, admission through a bounded worker pool, the fetch/parse/align/
// mux pipeline with persisted progress checkpoints, retry with exponential
// backoff, cooperative cancellation, and startup crash recovery.
package orchestrator
