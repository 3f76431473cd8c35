package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"videoforge/internal/deps"
	"videoforge/internal/queue"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Daemon:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	statuses := []deps.Status{
		{Name: "FFmpeg", Available: false, Detail: `binary "ffmpeg" not found`},
		{Name: "FFprobe", Available: false, Optional: true},
		{Name: "Custom", Available: true, Path: "/usr/bin/custom"},
	}
	lines := dependencyLines(statuses, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], `[ERROR] binary "ffmpeg" not found`) {
		t.Fatalf("expected error detail first, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[WARN] not available (optional)") {
		t.Fatalf("expected optional warning, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "[OK] Ready (/usr/bin/custom)") {
		t.Fatalf("expected ready line, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "Missing dependencies") || strings.Contains(lines[3], "FFprobe") {
		t.Fatalf("expected only required binaries in summary, got %q", lines[3])
	}
}

func TestFormatTaskStatus(t *testing.T) {
	if got := formatTaskStatus(queue.StatusProcessing, false); got != "Processing" {
		t.Fatalf("unexpected label %q", got)
	}
	colored := formatTaskStatus(queue.StatusFailed, true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.Contains(colored, "Failed") {
		t.Fatalf("expected red failed label, got %q", colored)
	}
}

func TestFormatProgress(t *testing.T) {
	if got := formatProgress(nil); got != "-" {
		t.Fatalf("expected dash for unknown progress, got %q", got)
	}
	p := 42
	if got := formatProgress(&p); got != "42%" {
		t.Fatalf("unexpected progress %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
