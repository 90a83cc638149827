// Package media wraps the yt-dlp binary: URL validation, identity
// resolution, and media + subtitle sidecar downloads with progress parsing.
// Command execution is behind the Executor interface so tests never spawn
// the real binary.
package media
