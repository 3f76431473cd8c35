package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

const fillerChunk = 32 * 1024

// WriteFile fills path with size bytes of filler. A size <= 0 writes one byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	chunk := bytes.Repeat([]byte{0x42}, fillerChunk)
	for remaining := size; remaining > 0; {
		n := min(remaining, int64(fillerChunk))
		if _, err := f.Write(chunk[:n]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= n
	}
}
