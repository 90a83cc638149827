package mux

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"dualsub/internal/logging"
	"dualsub/internal/services"
	"dualsub/internal/subtitle"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

// Request describes the inputs for subtitle embedding.
type Request struct {
	VideoPath    string // Source video file
	SubtitlePath string // Bilingual SRT to embed
	OutputPath   string // Destination for the subtitled copy
	Language     string // Subtitle track language code (e.g. "zh-CN")
	Title        string // Subtitle track title shown in players
}

// Embedder muxes an SRT track into a video container using ffmpeg. The
// source video is left untouched; the subtitled copy is written to
// OutputPath via a temporary file and rename.
type Embedder struct {
	binary string
	logger *slog.Logger
	run    commandRunner
}

// NewEmbedder constructs a subtitle embedder.
func NewEmbedder(binary string, logger *slog.Logger) *Embedder {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Embedder{
		binary: binary,
		logger: logging.NewComponentLogger(logger, "mux"),
		run:    defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (e *Embedder) WithCommandRunner(r commandRunner) {
	if e != nil && r != nil {
		e.run = r
	}
}

// Embed produces a copy of the video with the subtitle track muxed in.
func (e *Embedder) Embed(ctx context.Context, req Request) (string, error) {
	if e == nil {
		return "", fmt.Errorf("embedder not initialized")
	}
	if strings.TrimSpace(req.VideoPath) == "" {
		return "", fmt.Errorf("video path is required")
	}
	if strings.TrimSpace(req.SubtitlePath) == "" {
		return "", fmt.Errorf("subtitle path is required")
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return "", fmt.Errorf("output path is required")
	}
	if _, err := os.Stat(req.VideoPath); err != nil {
		return "", fmt.Errorf("source video not found: %w", err)
	}
	if _, err := os.Stat(req.SubtitlePath); err != nil {
		return "", fmt.Errorf("subtitle file not found: %w", err)
	}

	dir := filepath.Dir(req.OutputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	tmpPath := filepath.Join(dir, ".mux-"+filepath.Base(req.OutputPath)+".tmp")

	args := e.buildArgs(req, tmpPath)
	if e.logger != nil {
		e.logger.Debug("executing ffmpeg",
			logging.String("video_path", req.VideoPath),
			logging.String("subtitle_path", req.SubtitlePath),
			logging.String("language", req.Language),
		)
	}

	if err := e.run(ctx, e.binary, args...); err != nil {
		_ = os.Remove(tmpPath)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", services.Wrap(services.ErrExternalTool, "mux", "embed", "ffmpeg failed to embed subtitles", err)
	}
	if _, err := os.Stat(tmpPath); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "mux", "embed", "ffmpeg produced no output file", err)
	}
	if err := os.Rename(tmpPath, req.OutputPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("finalize muxed file: %w", err)
	}
	return req.OutputPath, nil
}

func (e *Embedder) buildArgs(req Request, tmpPath string) []string {
	language := subtitle.NormalizeLanguage(req.Language)
	if language == "" {
		language = "und"
	}
	title := req.Title
	if title == "" {
		title = subtitle.LanguageName(language)
	}
	args := []string{
		"-i", req.VideoPath,
		"-i", req.SubtitlePath,
		"-c", "copy",
		"-c:s", "mov_text",
		"-metadata:s:s:0", "language=" + language,
	}
	if title != "" {
		args = append(args, "-metadata:s:s:0", "title="+title)
	}
	args = append(args, "-y", "-f", "mp4", tmpPath)
	return args
}

// defaultCommandRunner executes ffmpeg commands.
func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
