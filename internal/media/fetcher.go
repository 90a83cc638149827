package media

import "context"

// VideoInfo identifies a video resolved from its URL.
type VideoInfo struct {
	ID              string
	Title           string
	DurationSeconds float64
}

// Progress captures yt-dlp download progress output.
type Progress struct {
	Percent         float64
	DownloadedBytes int64
	TotalBytes      int64
	Speed           float64
	ETASeconds      int
}

// FetchResult reports the artifacts produced by a fetch.
type FetchResult struct {
	VideoPath string
	// Subtitles maps normalized language codes to sidecar file paths.
	Subtitles map[string]string
}

// Fetcher defines the behaviour required by the download pipeline.
type Fetcher interface {
	// ResolveIdentity returns the video id, title, and duration for a URL
	// without downloading anything.
	ResolveIdentity(ctx context.Context, url string) (VideoInfo, error)
	// Fetch downloads the media file and subtitle sidecars into destDir.
	Fetch(ctx context.Context, url, videoID, destDir string, progress func(Progress)) (FetchResult, error)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}
