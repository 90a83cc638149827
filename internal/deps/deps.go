// Package deps reports availability of the external binaries dualsub shells
// out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"dualsub/internal/config"
)

// Requirement defines an external dependency dualsub relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Required lists the external binaries for the given configuration. ffmpeg
// is optional unless subtitle embedding is enabled.
func Required(cfg *config.Config) []Requirement {
	ytdlp := "yt-dlp"
	ffmpeg := "ffmpeg"
	embed := false
	if cfg != nil {
		ytdlp = cfg.Downloads.YtdlpBinary
		ffmpeg = cfg.Subtitles.FFmpegBinary
		embed = cfg.Subtitles.Embed
	}
	return []Requirement{
		{
			Name:        "yt-dlp",
			Command:     ytdlp,
			Description: "video and subtitle download",
		},
		{
			Name:        "ffmpeg",
			Command:     ffmpeg,
			Description: "subtitle embedding",
			Optional:    !embed,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the names of unavailable non-optional dependencies.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Optional && !status.Available {
			missing = append(missing, status.Name)
		}
	}
	return missing
}
