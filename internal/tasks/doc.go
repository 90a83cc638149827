// Package tasks persists download tasks in SQLite and defines the task
// lifecycle shared by the orchestrator, the HTTP API, and the CLI.
//
// Every mutation goes through Store.Apply with a Patch, so partial updates
// are atomic and last_updated is stamped on each write. Task status values
// are part of the wire contract for polling clients and never change
// meaning between releases.
package tasks
