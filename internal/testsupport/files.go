package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path with size bytes of filler content, creating parent
// directories as needed. Sizes <= 0 produce a one-byte file.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	filler := bytes.Repeat([]byte("dualsub."), int(size/8)+1)
	if err := os.WriteFile(path, filler[:size], 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
