package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/shlex"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateFFmpeg(); err != nil {
		return err
	}
	if err := c.validateResources(); err != nil {
		return err
	}
	if c.Upload.MaxSize == 0 {
		return errors.New("upload.max_size must be positive")
	}
	return c.validateLogging()
}

func (c *Config) validateWorker() error {
	if c.Worker.Concurrency < 1 {
		return errors.New("worker.concurrency must be at least 1")
	}
	if c.Worker.MaxRetries < 0 {
		return errors.New("worker.max_retries must be >= 0")
	}
	return ensurePositiveDurations(map[string]time.Duration{
		"worker.idle_poll_interval":   c.Worker.IdlePollInterval.Duration,
		"worker.busy_poll_interval":   c.Worker.BusyPollInterval.Duration,
		"worker.error_retry_interval": c.Worker.ErrorRetryInterval.Duration,
		"worker.progress_interval":    c.Worker.ProgressInterval.Duration,
	})
}

func (c *Config) validateFFmpeg() error {
	if c.FFmpeg.ExtraArgs == "" {
		return nil
	}
	if _, err := shlex.Split(c.FFmpeg.ExtraArgs); err != nil {
		return fmt.Errorf("ffmpeg.extra_args: %w", err)
	}
	return nil
}

func (c *Config) validateResources() error {
	if !c.Resources.Enabled {
		return nil
	}
	if c.Resources.MaxCPUPercent < 0 || c.Resources.MaxCPUPercent > 100 {
		return errors.New("resources.max_cpu_percent must be between 0 and 100")
	}
	if c.Resources.SampleInterval.Duration < 0 {
		return errors.New("resources.sample_interval must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveDurations(values map[string]time.Duration) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
