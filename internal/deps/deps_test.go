package deps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeStub(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	present := writeStub(t, t.TempDir(), "present")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present || results[0].Detail != "" {
		t.Fatalf("unexpected status for present binary: %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}
}

func TestEngineRequirementsResolveFromPath(t *testing.T) {
	binDir := t.TempDir()
	writeStub(t, binDir, "ffmpeg")
	t.Setenv("PATH", binDir)

	statuses := CheckBinaries(EngineRequirements("ffmpeg", "ffprobe"))
	if !statuses[0].Available {
		t.Fatalf("expected ffmpeg to resolve, got %#v", statuses[0])
	}
	if statuses[1].Available || !statuses[1].Optional {
		t.Fatalf("expected optional missing ffprobe, got %#v", statuses[1])
	}
	if err := MissingRequired(statuses); err != nil {
		t.Fatalf("optional ffprobe should not be required: %v", err)
	}
}

func TestMissingRequired(t *testing.T) {
	t.Setenv("PATH", "")
	err := MissingRequired(CheckBinaries(EngineRequirements("ffmpeg", "ffprobe")))
	if err == nil {
		t.Fatal("expected error when ffmpeg is missing")
	}
	if !strings.Contains(err.Error(), "FFmpeg") || strings.Contains(err.Error(), "FFprobe") {
		t.Fatalf("unexpected error: %v", err)
	}
}
