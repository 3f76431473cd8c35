package preflight

import (
	"context"

	"videoforge/internal/config"
	"videoforge/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes directory and broker checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Upload directory", cfg.Paths.UploadDir),
		CheckDirectoryAccess("Processed directory", cfg.Paths.ProcessedDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Events.RedisURL != "" {
		results = append(results, CheckRedis(ctx, cfg.Events.RedisURL))
	}
	if cfg.Resources.Enabled {
		results = append(results, CheckCapacity(ctx, NewCapacityGate(cfg)))
	}
	return results
}

// CheckSystemDeps evaluates the engine binaries for the given config. Both
// the daemon and the CLI use this so the requirements list lives in one place.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.EngineRequirements(cfg.FFmpegBinary(), cfg.FFprobeBinary()))
}
