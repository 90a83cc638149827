package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FormatTimestamp renders seconds as an SRT timestamp (HH:MM:SS,mmm).
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMillis := int64(seconds*1000 + 0.5)
	hours := totalMillis / 3600000
	minutes := (totalMillis % 3600000) / 60000
	secs := (totalMillis % 60000) / 1000
	millis := totalMillis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// RenderSRT produces SRT content from bilingual segments. Each cue carries the
// primary text on the first line and the secondary text beneath it. The
// secondary line is omitted when it is empty or duplicates the primary.
func RenderSRT(segments []BilingualSegment) string {
	var b strings.Builder
	for i, segment := range segments {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n",
			segment.Sequence,
			FormatTimestamp(segment.Start),
			FormatTimestamp(segment.End),
			cueText(segment),
		)
	}
	return b.String()
}

// WriteSRT writes bilingual segments to an SRT file via a temp file and
// rename so readers never observe a partial write.
func WriteSRT(path string, segments []BilingualSegment) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create subtitle directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".dualsub-srt-*")
	if err != nil {
		return fmt.Errorf("create temp subtitle file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(RenderSRT(segments)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write subtitle file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close subtitle file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("finalize subtitle file: %w", err)
	}
	return nil
}

func cueText(segment BilingualSegment) string {
	primary := strings.TrimSpace(segment.Primary)
	secondary := strings.TrimSpace(segment.Secondary)
	if secondary == "" || secondary == primary {
		return primary
	}
	return primary + "\n" + secondary
}
