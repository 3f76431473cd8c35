package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains storage locations used by the daemon.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	UploadDir    string `toml:"upload_dir"`
	ProcessedDir string `toml:"processed_dir"`
	LogDir       string `toml:"log_dir"`
}

// Worker contains scheduler tuning.
type Worker struct {
	Concurrency        int      `toml:"concurrency"`
	MaxRetries         int      `toml:"max_retries"`
	IdlePollInterval   Duration `toml:"idle_poll_interval"`
	BusyPollInterval   Duration `toml:"busy_poll_interval"`
	ErrorRetryInterval Duration `toml:"error_retry_interval"`
	ProgressInterval   Duration `toml:"progress_interval"`
	ShutdownGrace      Duration `toml:"shutdown_grace"`
}

// FFmpeg contains engine binaries and optional extra encoder arguments.
type FFmpeg struct {
	Binary      string `toml:"binary"`
	ProbeBinary string `toml:"probe_binary"`
	// ExtraArgs is split shell-style and appended before the output path.
	ExtraArgs string `toml:"extra_args"`
}

// Resources gates new claims on host capacity.
type Resources struct {
	Enabled        bool              `toml:"enabled"`
	MaxCPUPercent  float64           `toml:"max_cpu_percent"`
	MinFreeMemory  datasize.ByteSize `toml:"min_free_memory"`
	MinFreeDisk    datasize.ByteSize `toml:"min_free_disk"`
	SampleInterval Duration          `toml:"sample_interval"`
}

// Upload contains limits for incoming source files.
type Upload struct {
	MaxSize datasize.ByteSize `toml:"max_size"`
}

// API contains HTTP server settings. An empty bind disables the server.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Events configures the optional lifecycle publisher.
type Events struct {
	RedisURL string `toml:"redis_url"`
	Channel  string `toml:"channel"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for videoforge.
//
// Configuration sections by subsystem:
//   - Paths: data, upload, processed and log directories
//   - Worker: scheduler concurrency, retries and poll intervals
//   - FFmpeg: encoder and probe binaries
//   - Resources: optional host capacity gate applied before claims
//   - Upload: source file limits
//   - API: HTTP bind address and bearer token
//   - Events: optional Redis lifecycle publisher
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Worker    Worker    `toml:"worker"`
	FFmpeg    FFmpeg    `toml:"ffmpeg"`
	Resources Resources `toml:"resources"`
	Upload    Upload    `toml:"upload"`
	API       API       `toml:"api"`
	Events    Events    `toml:"events"`
	Logging   Logging   `toml:"logging"`
}

// Duration wraps time.Duration so TOML files and env overrides can use "2s" style values.
type Duration struct {
	time.Duration
}

// Seconds builds a Duration from whole seconds.
func Seconds(n int) Duration {
	return Duration{Duration: time.Duration(n) * time.Second}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	value := strings.TrimSpace(string(text))
	if value == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. Environment
// overrides are applied after the file and before validation. The returned
// config has all path fields expanded.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("videoforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.UploadDir, c.Paths.ProcessedDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite task repository location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "videoforge.db")
}

// FFmpegBinary returns the encoder executable name.
func (c *Config) FFmpegBinary() string {
	if strings.TrimSpace(c.FFmpeg.Binary) == "" {
		return defaultFFmpegBinary
	}
	return c.FFmpeg.Binary
}

// FFprobeBinary returns the ffprobe executable name used for duration probes.
func (c *Config) FFprobeBinary() string {
	if strings.TrimSpace(c.FFmpeg.ProbeBinary) == "" {
		return defaultFFprobeBinary
	}
	return c.FFmpeg.ProbeBinary
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	var b strings.Builder
	enc := toml.NewEncoder(&b)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return b.String(), nil
}
