// Package mux embeds bilingual subtitle tracks into video containers with
// ffmpeg. Embedding is best-effort from the pipeline's point of view: a
// failure here never loses the downloaded media or the sidecar SRT.
package mux
