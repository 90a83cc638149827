package subtitle

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

const sampleVTT = `WEBVTT
Kind: captions
Language: en

NOTE this block is ignored

00:00:01.000 --> 00:00:03.500
Hello, welcome to this tutorial.

00:00:03.500 --> 00:00:06.000
<c.colorE5E5E5>Today we cover</c>
<b>subtitle alignment.</b>

garbage block without timing
`

const sampleSRT = `1
00:00:01,000 --> 00:00:03,500
你好，欢迎来到本教程。

2
00:00:03,500 --> 00:00:06,000
今天我们讲解
字幕对齐。
`

func TestParseVTT(t *testing.T) {
	segments := Parse(sampleVTT)
	if len(segments) != 2 {
		t.Fatalf("len(segments) = %d, want 2", len(segments))
	}
	first := segments[0]
	if first.Sequence != 1 {
		t.Fatalf("sequence = %d, want 1", first.Sequence)
	}
	if !closeTo(first.Start, 1.0) || !closeTo(first.End, 3.5) {
		t.Fatalf("timing = %v..%v", first.Start, first.End)
	}
	if first.Text != "Hello, welcome to this tutorial." {
		t.Fatalf("text = %q", first.Text)
	}
	second := segments[1]
	if second.Text != "Today we cover subtitle alignment." {
		t.Fatalf("tags not stripped or lines not joined: %q", second.Text)
	}
}

func TestParseSRT(t *testing.T) {
	segments := Parse(sampleSRT)
	if len(segments) != 2 {
		t.Fatalf("len(segments) = %d, want 2", len(segments))
	}
	if segments[1].Text != "今天我们讲解 字幕对齐。" {
		t.Fatalf("text = %q", segments[1].Text)
	}
	if !closeTo(segments[1].Start, 3.5) {
		t.Fatalf("start = %v", segments[1].Start)
	}
}

func TestParseStripsByteOrderMark(t *testing.T) {
	segments := Parse("\uFEFF" + sampleVTT)
	if len(segments) != 2 {
		t.Fatalf("len(segments) = %d, want 2", len(segments))
	}
	if segments[0].Text != "Hello, welcome to this tutorial." {
		t.Fatalf("text = %q", segments[0].Text)
	}
}

func TestParseEmptyAndHeaderOnly(t *testing.T) {
	if got := Parse(""); len(got) != 0 {
		t.Fatalf("empty content produced %d segments", len(got))
	}
	if got := Parse("WEBVTT\n\nNOTE nothing here\n"); len(got) != 0 {
		t.Fatalf("header-only content produced %d segments", len(got))
	}
}

func TestParseFileMissing(t *testing.T) {
	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.vtt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.en.vtt")
	if err := os.WriteFile(path, []byte(sampleVTT), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	segments, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("len(segments) = %d, want 2", len(segments))
	}
}

func TestParseTimestampForms(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"00:01:30.500", 90.5},
		{"01:30.500", 90.5},
		{"30.500", 30.5},
		{"01:01:01,500", 3661.5},
		{"  00:00:00.000 ", 0},
	}
	for _, tc := range cases {
		got, err := ParseTimestamp(tc.in)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", tc.in, err)
		}
		if !closeTo(got, tc.want) {
			t.Fatalf("ParseTimestamp(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "a:b:c", "1:2:3:4"} {
		if _, err := ParseTimestamp(bad); err == nil {
			t.Fatalf("ParseTimestamp(%q) should fail", bad)
		}
	}
}

func closeTo(got, want float64) bool {
	return math.Abs(got-want) < 1e-6
}
