// Package api defines the JSON wire types exchanged between the daemon's
// HTTP server and its clients, conversions from persisted task records, and
// a typed HTTP client used by the CLI.
package api
