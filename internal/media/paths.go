package media

import (
	"os"
	"path/filepath"
	"strings"

	"dualsub/internal/subtitle"
)

// VideoFileName returns the deterministic media filename for a video id.
func VideoFileName(videoID string) string {
	return videoID + ".mp4"
}

// SubbedFileName returns the filename for the copy with embedded subtitles.
func SubbedFileName(videoID string) string {
	return videoID + ".subbed.mp4"
}

// BilingualSRTName returns the merged subtitle filename for a video id.
func BilingualSRTName(videoID string) string {
	return videoID + ".bilingual.srt"
}

// FindSubtitleSidecars scans dir for `<videoID>.<lang>.vtt` (or .srt) files
// and returns a map of normalized language code to path.
func FindSubtitleSidecars(dir, videoID string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	sidecars := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".vtt" && ext != ".srt" {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if !strings.HasPrefix(stem, videoID+".") {
			continue
		}
		lang := strings.TrimPrefix(stem, videoID+".")
		if lang == "" {
			continue
		}
		sidecars[subtitle.NormalizeLanguage(lang)] = filepath.Join(dir, name)
	}
	if len(sidecars) == 0 {
		return nil, nil
	}
	return sidecars, nil
}
