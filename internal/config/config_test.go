package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/c2h5oh/datasize"

	"videoforge/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "videoforge")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.UploadDir != filepath.Join(wantData, "uploads") {
		t.Fatalf("unexpected upload dir: %q", cfg.Paths.UploadDir)
	}
	if cfg.Paths.ProcessedDir != filepath.Join(wantData, "processed") {
		t.Fatalf("unexpected processed dir: %q", cfg.Paths.ProcessedDir)
	}
	if cfg.Worker.Concurrency != 3 {
		t.Fatalf("expected default concurrency 3, got %d", cfg.Worker.Concurrency)
	}
	if cfg.Worker.MaxRetries != 3 {
		t.Fatalf("expected default max retries 3, got %d", cfg.Worker.MaxRetries)
	}
	if cfg.Worker.IdlePollInterval.Duration != 2*time.Second {
		t.Fatalf("unexpected idle poll interval: %s", cfg.Worker.IdlePollInterval)
	}
	if cfg.Worker.BusyPollInterval.Duration != time.Second {
		t.Fatalf("unexpected busy poll interval: %s", cfg.Worker.BusyPollInterval)
	}
	if cfg.Worker.ProgressInterval.Duration != time.Second {
		t.Fatalf("unexpected progress interval: %s", cfg.Worker.ProgressInterval)
	}
	if cfg.Upload.MaxSize != 200*datasize.MB {
		t.Fatalf("unexpected upload limit: %s", cfg.Upload.MaxSize.HumanReadable())
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "videoforge.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "videoforge.toml")
	content := `
[paths]
data_dir = "~/vf"
processed_dir = "/srv/encoded"

[worker]
concurrency = 5
idle_poll_interval = "750ms"

[upload]
max_size = "1GB"

[ffmpeg]
extra_args = "-movflags +faststart"

[logging]
format = "JSON"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "vf") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Paths.ProcessedDir != "/srv/encoded" {
		t.Fatalf("unexpected processed dir: %q", cfg.Paths.ProcessedDir)
	}
	if cfg.Paths.UploadDir != filepath.Join(tempHome, "vf", "uploads") {
		t.Fatalf("unexpected upload dir: %q", cfg.Paths.UploadDir)
	}
	if cfg.Worker.Concurrency != 5 {
		t.Fatalf("expected concurrency 5, got %d", cfg.Worker.Concurrency)
	}
	if cfg.Worker.IdlePollInterval.Duration != 750*time.Millisecond {
		t.Fatalf("unexpected idle poll interval: %s", cfg.Worker.IdlePollInterval)
	}
	if cfg.Worker.BusyPollInterval.Duration != time.Second {
		t.Fatalf("expected busy poll default to survive, got %s", cfg.Worker.BusyPollInterval)
	}
	if cfg.Upload.MaxSize != datasize.GB {
		t.Fatalf("unexpected upload limit: %d", cfg.Upload.MaxSize)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized log format, got %q", cfg.Logging.Format)
	}
}

func TestEnvOverridesFileValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "videoforge.toml")
	content := `
[worker]
concurrency = 5

[api]
token = "from-file"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("VIDEOFORGE_WORKER_CONCURRENCY", "2")
	t.Setenv("VIDEOFORGE_WORKER_BUSY_POLL_INTERVAL", "250ms")
	t.Setenv("VIDEOFORGE_API_TOKEN", "from-env")
	t.Setenv("VIDEOFORGE_UPLOAD_MAX_SIZE", "50MB")
	t.Setenv("VIDEOFORGE_RESOURCES_ENABLED", "true")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Worker.Concurrency != 2 {
		t.Fatalf("expected env concurrency 2, got %d", cfg.Worker.Concurrency)
	}
	if cfg.Worker.BusyPollInterval.Duration != 250*time.Millisecond {
		t.Fatalf("unexpected busy poll interval: %s", cfg.Worker.BusyPollInterval)
	}
	if cfg.Worker.MaxRetries != 3 {
		t.Fatalf("expected untouched max retries, got %d", cfg.Worker.MaxRetries)
	}
	if cfg.API.Token != "from-env" {
		t.Fatalf("expected env token, got %q", cfg.API.Token)
	}
	if cfg.Upload.MaxSize != 50*datasize.MB {
		t.Fatalf("unexpected upload limit: %d", cfg.Upload.MaxSize)
	}
	if !cfg.Resources.Enabled {
		t.Fatal("expected resources gate enabled from env")
	}
}

func TestCreateSample(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[worker]") {
		t.Fatalf("sample config missing worker section")
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Worker.Concurrency != 3 {
		t.Fatalf("unexpected sample concurrency: %d", cfg.Worker.Concurrency)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "zero concurrency",
			mutate: func(c *config.Config) { c.Worker.Concurrency = 0 },
			want:   "worker.concurrency",
		},
		{
			name:   "negative retries",
			mutate: func(c *config.Config) { c.Worker.MaxRetries = -1 },
			want:   "worker.max_retries",
		},
		{
			name:   "zero idle poll",
			mutate: func(c *config.Config) { c.Worker.IdlePollInterval = config.Duration{} },
			want:   "worker.idle_poll_interval",
		},
		{
			name:   "unbalanced extra args",
			mutate: func(c *config.Config) { c.FFmpeg.ExtraArgs = `-metadata "title=oops` },
			want:   "ffmpeg.extra_args",
		},
		{
			name: "cpu percent out of range",
			mutate: func(c *config.Config) {
				c.Resources.Enabled = true
				c.Resources.MaxCPUPercent = 150
			},
			want: "resources.max_cpu_percent",
		},
		{
			name:   "unknown log format",
			mutate: func(c *config.Config) { c.Logging.Format = "xml" },
			want:   "logging.format",
		},
		{
			name:   "zero upload size",
			mutate: func(c *config.Config) { c.Upload.MaxSize = 0 },
			want:   "upload.max_size",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestDurationUnmarshalText(t *testing.T) {
	var d config.Duration
	if err := d.UnmarshalText([]byte(" 1500ms ")); err != nil {
		t.Fatalf("UnmarshalText returned error: %v", err)
	}
	if d.Duration != 1500*time.Millisecond {
		t.Fatalf("unexpected duration: %s", d.Duration)
	}
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Fatal("expected parse error")
	}
}
