package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"dualsub/internal/services"
)

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary         string
	resolveTimeout time.Duration
	fetchTimeout   time.Duration
	languages      []string
	exec           Executor
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// New constructs a yt-dlp client. languages lists the subtitle language codes
// requested as sidecars.
func New(binary string, resolveTimeoutSeconds, fetchTimeoutSeconds int, languages []string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary:         binary,
		resolveTimeout: time.Duration(resolveTimeoutSeconds) * time.Second,
		fetchTimeout:   time.Duration(fetchTimeoutSeconds) * time.Second,
		languages:      languages,
		exec:           commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type videoMetadata struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

// ResolveIdentity fetches the video id, title, and duration without
// downloading media.
func (c *Client) ResolveIdentity(ctx context.Context, url string) (VideoInfo, error) {
	if !ValidateURL(url) {
		return VideoInfo{}, services.Wrap(services.ErrValidation, "media", "resolve", "not a recognized YouTube URL", nil)
	}

	resolveCtx := ctx
	if c.resolveTimeout > 0 {
		var cancel context.CancelFunc
		resolveCtx, cancel = context.WithTimeout(ctx, c.resolveTimeout)
		defer cancel()
	}

	args := []string{"--dump-json", "--no-download", "--no-warnings", "--no-playlist", url}

	var jsonLine string
	var tail outputTail
	err := c.exec.Run(resolveCtx, c.binary, args, func(line string) {
		tail.add(line)
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "{") {
			jsonLine = trimmed
		}
	})
	if err != nil {
		return VideoInfo{}, c.classify("resolve", "metadata lookup failed", err, resolveCtx, &tail)
	}
	if jsonLine == "" {
		return VideoInfo{}, services.Wrap(services.ErrExternalTool, "media", "resolve", "yt-dlp produced no metadata", nil)
	}

	var meta videoMetadata
	if err := json.Unmarshal([]byte(jsonLine), &meta); err != nil {
		return VideoInfo{}, services.Wrap(services.ErrExternalTool, "media", "resolve", "unparseable yt-dlp metadata", err)
	}
	if meta.ID == "" {
		return VideoInfo{}, services.Wrap(services.ErrExternalTool, "media", "resolve", "yt-dlp metadata missing video id", nil)
	}
	return VideoInfo{ID: meta.ID, Title: meta.Title, DurationSeconds: meta.Duration}, nil
}

// Fetch downloads the media file plus subtitle sidecars into destDir. The
// output is named deterministically from the video id.
func (c *Client) Fetch(ctx context.Context, url, videoID, destDir string, progress func(Progress)) (FetchResult, error) {
	if strings.TrimSpace(videoID) == "" {
		return FetchResult{}, errors.New("video id required")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return FetchResult{}, fmt.Errorf("create destination: %w", err)
	}

	fetchCtx := ctx
	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
	}

	outputTemplate := filepath.Join(destDir, videoID+".%(ext)s")
	args := []string{
		"--newline",
		"--no-playlist",
		"--no-warnings",
		"--merge-output-format", "mp4",
		"--write-subs",
		"--write-auto-subs",
		"--sub-format", "vtt",
		"--convert-subs", "vtt",
		"-o", outputTemplate,
	}
	if len(c.languages) > 0 {
		args = append(args, "--sub-langs", strings.Join(c.languages, ","))
	}
	args = append(args, url)

	var tail outputTail
	err := c.exec.Run(fetchCtx, c.binary, args, func(line string) {
		tail.add(line)
		if progress == nil {
			return
		}
		if update, ok := parseProgressLine(line); ok {
			progress(update)
		}
	})
	if err != nil {
		return FetchResult{}, c.classify("fetch", "download failed", err, fetchCtx, &tail)
	}

	videoPath := filepath.Join(destDir, VideoFileName(videoID))
	if _, err := os.Stat(videoPath); err != nil {
		if found := findDownloadedVideo(destDir, videoID); found != "" {
			videoPath = found
		} else {
			return FetchResult{}, services.Wrap(services.ErrExternalTool, "media", "fetch", "yt-dlp produced no output file", err)
		}
	}

	sidecars, err := FindSubtitleSidecars(destDir, videoID)
	if err != nil {
		return FetchResult{}, fmt.Errorf("inspect subtitle sidecars: %w", err)
	}
	return FetchResult{VideoPath: videoPath, Subtitles: sidecars}, nil
}

func (c *Client) classify(operation, message string, err error, ctx context.Context, tail *outputTail) error {
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "media", operation, "yt-dlp timed out", err)
		}
		return ctx.Err()
	}
	combined := tail.String()
	if isNotFoundOutput(combined) {
		return services.Wrap(services.ErrNotFound, "media", operation, "video unavailable", err)
	}
	return services.Wrap(services.ErrExternalTool, "media", operation, message, err)
}

var notFoundMarkers = []string{
	"video unavailable",
	"private video",
	"this video is not available",
	"account associated with this video has been terminated",
	"http error 404",
}

func isNotFoundOutput(output string) bool {
	lowered := strings.ToLower(output)
	for _, marker := range notFoundMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

func findDownloadedVideo(dir, videoID string) string {
	for _, ext := range []string{".mp4", ".mkv", ".webm"} {
		candidate := filepath.Join(dir, videoID+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// [download]  42.5% of ~10.00MiB at 1.20MiB/s ETA 00:42
var progressLineRe = regexp.MustCompile(`^\[download\]\s+([\d.]+)%(?:\s+of\s+~?\s*(\S+))?(?:\s+at\s+(\S+))?(?:\s+ETA\s+(\S+))?`)

func parseProgressLine(line string) (Progress, bool) {
	match := progressLineRe.FindStringSubmatch(strings.TrimSpace(line))
	if match == nil {
		return Progress{}, false
	}
	percent, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return Progress{}, false
	}
	update := Progress{Percent: percent}

	if total, ok := parseByteSize(match[2]); ok {
		update.TotalBytes = total
		update.DownloadedBytes = int64(float64(total) * percent / 100)
	}
	if speed, ok := parseByteSize(strings.TrimSuffix(match[3], "/s")); ok {
		update.Speed = float64(speed)
	}
	if eta, err := parseClockDuration(match[4]); err == nil {
		update.ETASeconds = eta
	}
	return update, true
}

func parseByteSize(value string) (int64, bool) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "Unknown") {
		return 0, false
	}
	size, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, false
	}
	return int64(size), true
}

func parseClockDuration(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "Unknown") {
		return 0, errors.New("no eta")
	}
	parts := strings.Split(value, ":")
	seconds := 0
	for _, part := range parts {
		unit, err := strconv.Atoi(part)
		if err != nil {
			return 0, err
		}
		seconds = seconds*60 + unit
	}
	return seconds, nil
}

type outputTail struct {
	lines []string
}

const tailLimit = 40

func (t *outputTail) add(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > tailLimit {
		t.lines = t.lines[len(t.lines)-tailLimit:]
	}
}

func (t *outputTail) String() string {
	return strings.Join(t.lines, "\n")
}
