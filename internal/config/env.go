package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. VIDEOFORGE_WORKER_CONCURRENCY.
const EnvPrefix = "VIDEOFORGE"

var envKeys = []string{
	"paths.data_dir",
	"paths.upload_dir",
	"paths.processed_dir",
	"paths.log_dir",
	"worker.concurrency",
	"worker.max_retries",
	"worker.idle_poll_interval",
	"worker.busy_poll_interval",
	"worker.error_retry_interval",
	"worker.progress_interval",
	"worker.shutdown_grace",
	"ffmpeg.binary",
	"ffmpeg.probe_binary",
	"ffmpeg.extra_args",
	"resources.enabled",
	"resources.max_cpu_percent",
	"resources.min_free_memory",
	"resources.min_free_disk",
	"resources.sample_interval",
	"upload.max_size",
	"api.bind",
	"api.token",
	"events.redis_url",
	"events.channel",
	"logging.format",
	"logging.level",
}

// applyEnvOverrides layers VIDEOFORGE_* variables over file values. Only
// variables that are actually set are decoded, so file values survive.
func applyEnvOverrides(cfg *Config) error {
	vp := viper.New()
	vp.SetEnvPrefix(EnvPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	overrides := make(map[string]any)
	for _, key := range envKeys {
		if err := vp.BindEnv(key); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
		if !vp.IsSet(key) {
			continue
		}
		section, field, _ := strings.Cut(key, ".")
		nested, ok := overrides[section].(map[string]any)
		if !ok {
			nested = make(map[string]any)
			overrides[section] = nested
		}
		nested[field] = vp.GetString(key)
	}
	if len(overrides) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "toml",
		WeaklyTypedInput: true,
		Result:           cfg,
		DecodeHook:       mapstructure.TextUnmarshallerHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("env decoder: %w", err)
	}
	if err := decoder.Decode(overrides); err != nil {
		return fmt.Errorf("apply env overrides: %w", err)
	}
	return nil
}
