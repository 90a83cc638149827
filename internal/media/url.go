package media

import (
	"regexp"
	"strings"

	"dualsub/internal/services"
)

var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(?:www\.|m\.)?youtube\.com/watch\?v=([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`^https?://(?:www\.)?youtu\.be/([a-zA-Z0-9_-]+)`),
}

// ValidateURL reports whether the URL is a supported YouTube watch URL.
func ValidateURL(url string) bool {
	url = strings.TrimSpace(url)
	for _, pattern := range urlPatterns {
		if pattern.MatchString(url) {
			return true
		}
	}
	return false
}

// ExtractVideoID pulls the video id out of a YouTube URL.
func ExtractVideoID(url string) (string, error) {
	url = strings.TrimSpace(url)
	for _, pattern := range urlPatterns {
		if match := pattern.FindStringSubmatch(url); match != nil {
			return match[1], nil
		}
	}
	return "", services.Wrap(services.ErrValidation, "media", "extract video id", "not a recognized YouTube URL", nil)
}
