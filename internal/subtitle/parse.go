package subtitle

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var (
	inlineTagRe  = regexp.MustCompile(`<[^>]+>`)
	timingLineRe = regexp.MustCompile(`([\d:.,]+)\s*-->\s*([\d:.,]+)`)
	blockSplitRe = regexp.MustCompile(`\r?\n\r?\n+`)
)

// ParseFile reads a WebVTT or SRT file into segments. The two formats share
// enough structure that one tolerant pass handles both: blocks separated by
// blank lines, an optional numeric index or cue identifier, a timing line,
// then text. Unparseable blocks are skipped rather than failing the file, and
// a file with zero usable cues parses to an empty slice.
func ParseFile(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subtitle file: %w", err)
	}
	return Parse(string(data)), nil
}

// Parse extracts segments from subtitle file content.
func Parse(content string) []Segment {
	content = strings.TrimPrefix(content, "\uFEFF")
	blocks := blockSplitRe.Split(content, -1)

	var segments []Segment
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		upper := strings.ToUpper(block)
		if strings.HasPrefix(upper, "WEBVTT") || strings.HasPrefix(upper, "NOTE") || strings.HasPrefix(upper, "STYLE") || strings.HasPrefix(upper, "REGION") {
			continue
		}

		var timingLine string
		var textLines []string
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimRight(line, "\r")
			if timingLine == "" {
				if strings.Contains(line, "-->") {
					timingLine = line
				}
				continue
			}
			clean := strings.TrimSpace(inlineTagRe.ReplaceAllString(line, ""))
			if clean != "" {
				textLines = append(textLines, clean)
			}
		}
		if timingLine == "" || len(textLines) == 0 {
			continue
		}

		match := timingLineRe.FindStringSubmatch(timingLine)
		if match == nil {
			continue
		}
		start, err := ParseTimestamp(match[1])
		if err != nil {
			continue
		}
		end, err := ParseTimestamp(match[2])
		if err != nil {
			continue
		}

		segments = append(segments, Segment{
			Sequence: len(segments) + 1,
			Start:    start,
			End:      end,
			Text:     strings.Join(textLines, " "),
		})
	}
	return segments
}

// ParseTimestamp converts a subtitle timestamp to seconds. Accepted forms are
// HH:MM:SS.mmm, MM:SS.mmm, and SS.mmm, with either a period or a comma before
// the milliseconds.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ",", ".")

	parts := strings.Split(value, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}

	seconds, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	multiplier := 60.0
	for i := len(parts) - 2; i >= 0; i-- {
		unit, err := strconv.Atoi(parts[i])
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		seconds += float64(unit) * multiplier
		multiplier *= 60
	}
	return seconds, nil
}
