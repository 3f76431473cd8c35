package preflight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"videoforge/internal/config"
)

// ErrInsufficientCapacity marks a failed capacity check.
var ErrInsufficientCapacity = errors.New("insufficient host capacity")

// Sampler reads host utilisation. Errors from individual probes skip that
// probe rather than blocking claims.
type Sampler interface {
	CPUPercent(ctx context.Context, interval time.Duration) (float64, error)
	AvailableMemory(ctx context.Context) (uint64, error)
	FreeDisk(ctx context.Context, path string) (uint64, error)
}

type hostSampler struct{}

func (hostSampler) CPUPercent(ctx context.Context, interval time.Duration) (float64, error) {
	values, err := cpu.PercentWithContext(ctx, interval, false)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, errors.New("no cpu samples")
	}
	return values[0], nil
}

func (hostSampler) AvailableMemory(ctx context.Context) (uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

func (hostSampler) FreeDisk(ctx context.Context, path string) (uint64, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// CapacityGate refuses new claims while the host is saturated.
type CapacityGate struct {
	maxCPUPercent  float64
	minFreeMemory  datasize.ByteSize
	minFreeDisk    datasize.ByteSize
	diskPath       string
	sampleInterval time.Duration
	sampler        Sampler
}

// NewCapacityGate builds a gate from the [resources] section, measuring disk
// space on the processed directory.
func NewCapacityGate(cfg *config.Config) *CapacityGate {
	return &CapacityGate{
		maxCPUPercent:  cfg.Resources.MaxCPUPercent,
		minFreeMemory:  cfg.Resources.MinFreeMemory,
		minFreeDisk:    cfg.Resources.MinFreeDisk,
		diskPath:       cfg.Paths.ProcessedDir,
		sampleInterval: cfg.Resources.SampleInterval.Duration,
		sampler:        hostSampler{},
	}
}

// WithSampler replaces the host sampler, mainly for tests.
func (g *CapacityGate) WithSampler(s Sampler) *CapacityGate {
	g.sampler = s
	return g
}

// Check returns nil when another encode may start. A zero threshold disables
// that probe.
func (g *CapacityGate) Check(ctx context.Context) error {
	if g == nil {
		return nil
	}
	if g.maxCPUPercent > 0 {
		if usage, err := g.sampler.CPUPercent(ctx, g.sampleInterval); err == nil && usage > g.maxCPUPercent {
			return fmt.Errorf("%w: cpu at %.1f%% (limit %.1f%%)", ErrInsufficientCapacity, usage, g.maxCPUPercent)
		}
	}
	if g.minFreeMemory > 0 {
		if avail, err := g.sampler.AvailableMemory(ctx); err == nil && avail < g.minFreeMemory.Bytes() {
			return fmt.Errorf("%w: %s memory available (need %s)", ErrInsufficientCapacity,
				datasize.ByteSize(avail).HumanReadable(), g.minFreeMemory.HumanReadable())
		}
	}
	if g.minFreeDisk > 0 && g.diskPath != "" {
		if free, err := g.sampler.FreeDisk(ctx, g.diskPath); err == nil && free < g.minFreeDisk.Bytes() {
			return fmt.Errorf("%w: %s free on %s (need %s)", ErrInsufficientCapacity,
				datasize.ByteSize(free).HumanReadable(), g.diskPath, g.minFreeDisk.HumanReadable())
		}
	}
	return nil
}
