package subtitle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00,000"},
		{3661.5, "01:01:01,500"},
		{90.05, "00:01:30,050"},
		{-1, "00:00:00,000"},
	}
	for _, tc := range cases {
		if got := FormatTimestamp(tc.in); got != tc.want {
			t.Fatalf("FormatTimestamp(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRenderSRT(t *testing.T) {
	segments := []BilingualSegment{
		{Sequence: 1, Start: 0, End: 2.5, Primary: "你好", Secondary: "Hello", Matched: true},
		{Sequence: 2, Start: 2.5, End: 4, Primary: "再见", Secondary: "再见", Matched: false},
	}

	got := RenderSRT(segments)
	want := "1\n00:00:00,000 --> 00:00:02,500\n你好\nHello\n\n2\n00:00:02,500 --> 00:00:04,000\n再见\n"
	if got != want {
		t.Fatalf("unexpected SRT:\n%q\nwant:\n%q", got, want)
	}
}

func TestWriteSRTRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "video.bilingual.srt")
	segments := []BilingualSegment{
		{Sequence: 1, Start: 1, End: 3, Primary: "第一句", Secondary: "First line", Matched: true},
	}
	if err := WriteSRT(path, segments); err != nil {
		t.Fatalf("WriteSRT: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	parsed := Parse(string(data))
	if len(parsed) != 1 {
		t.Fatalf("round trip produced %d segments", len(parsed))
	}
	if parsed[0].Text != "第一句 First line" {
		t.Fatalf("text = %q", parsed[0].Text)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".dualsub-srt-") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}
