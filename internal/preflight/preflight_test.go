package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/c2h5oh/datasize"

	"videoforge/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestRunAllCoversConfiguredDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.UploadDir = filepath.Join(base, "uploads")
	cfg.Paths.ProcessedDir = filepath.Join(base, "processed")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), &cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 directory checks, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Fatalf("%s failed: %s", r.Name, r.Detail)
		}
	}
}

func TestRunAllNilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatalf("expected nil results, got %v", results)
	}
}

func TestCheckRedisInvalidURL(t *testing.T) {
	result := CheckRedis(context.Background(), "not-a-url")
	if result.Passed {
		t.Fatal("expected failure for invalid url")
	}
	if !strings.Contains(result.Detail, "invalid url") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

type fakeSampler struct {
	cpu    float64
	memory uint64
	disk   uint64
	err    error
}

func (f fakeSampler) CPUPercent(context.Context, time.Duration) (float64, error) {
	return f.cpu, f.err
}

func (f fakeSampler) AvailableMemory(context.Context) (uint64, error) {
	return f.memory, f.err
}

func (f fakeSampler) FreeDisk(context.Context, string) (uint64, error) {
	return f.disk, f.err
}

func newTestGate(sampler Sampler) *CapacityGate {
	cfg := config.Default()
	cfg.Paths.ProcessedDir = "/srv/processed"
	cfg.Resources.Enabled = true
	cfg.Resources.MaxCPUPercent = 90
	cfg.Resources.MinFreeMemory = 512 * datasize.MB
	cfg.Resources.MinFreeDisk = 2 * datasize.GB
	return NewCapacityGate(&cfg).WithSampler(sampler)
}

func TestCapacityGate(t *testing.T) {
	healthy := fakeSampler{cpu: 20, memory: uint64(4 * datasize.GB), disk: uint64(100 * datasize.GB)}

	tests := []struct {
		name    string
		sampler fakeSampler
		want    string
	}{
		{name: "healthy", sampler: healthy},
		{name: "cpu saturated", sampler: fakeSampler{cpu: 97, memory: healthy.memory, disk: healthy.disk}, want: "cpu"},
		{name: "low memory", sampler: fakeSampler{cpu: 10, memory: uint64(100 * datasize.MB), disk: healthy.disk}, want: "memory"},
		{name: "low disk", sampler: fakeSampler{cpu: 10, memory: healthy.memory, disk: uint64(datasize.GB)}, want: "/srv/processed"},
		{name: "probe errors ignored", sampler: fakeSampler{err: errors.New("boom")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := newTestGate(tc.sampler).Check(context.Background())
			if tc.want == "" {
				if err != nil {
					t.Fatalf("expected capacity, got %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInsufficientCapacity) {
				t.Fatalf("expected ErrInsufficientCapacity, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestNilCapacityGateAllows(t *testing.T) {
	var gate *CapacityGate
	if err := gate.Check(context.Background()); err != nil {
		t.Fatalf("nil gate should allow claims: %v", err)
	}
}

func TestCheckCapacityReportsResult(t *testing.T) {
	result := CheckCapacity(context.Background(), newTestGate(fakeSampler{cpu: 99}))
	if result.Passed {
		t.Fatal("expected failure when cpu saturated")
	}
}
