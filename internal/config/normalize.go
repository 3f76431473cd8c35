package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFFmpeg()
	c.normalizeAPI()
	c.normalizeEvents()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.UploadDir, err = expandOrDerive(c.Paths.UploadDir, c.Paths.DataDir, uploadSubdir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if c.Paths.ProcessedDir, err = expandOrDerive(c.Paths.ProcessedDir, c.Paths.DataDir, processedSubdir); err != nil {
		return fmt.Errorf("paths.processed_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandOrDerive(c.Paths.LogDir, c.Paths.DataDir, logSubdir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func expandOrDerive(value, base, subdir string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return filepath.Join(base, subdir), nil
	}
	return expandPath(value)
}

func (c *Config) normalizeFFmpeg() {
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	c.FFmpeg.ProbeBinary = strings.TrimSpace(c.FFmpeg.ProbeBinary)
	c.FFmpeg.ExtraArgs = strings.TrimSpace(c.FFmpeg.ExtraArgs)
	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = defaultFFmpegBinary
	}
	if c.FFmpeg.ProbeBinary == "" {
		c.FFmpeg.ProbeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.API.Token = strings.TrimSpace(c.API.Token)
}

func (c *Config) normalizeEvents() {
	c.Events.RedisURL = strings.TrimSpace(c.Events.RedisURL)
	c.Events.Channel = strings.TrimSpace(c.Events.Channel)
	if c.Events.Channel == "" {
		c.Events.Channel = defaultEventsChannel
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
