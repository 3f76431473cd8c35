package config

import (
	"time"

	"github.com/c2h5oh/datasize"
)

const (
	defaultConfigPath        = "~/.config/videoforge/config.toml"
	defaultDataDir           = "~/.local/share/videoforge"
	defaultFFmpegBinary      = "ffmpeg"
	defaultFFprobeBinary     = "ffprobe"
	defaultConcurrency       = 3
	defaultMaxRetries        = 3
	defaultIdlePollSeconds   = 2
	defaultBusyPollSeconds   = 1
	defaultErrorRetrySeconds = 2
	defaultProgressSeconds   = 1
	defaultShutdownSeconds   = 10
	defaultUploadMaxSize     = 200 * datasize.MB
	defaultMinFreeMemory     = 200 * datasize.MB
	defaultMinFreeDisk       = 200 * datasize.MB
	defaultResourceSample    = 200 * time.Millisecond
	defaultAPIBind           = "127.0.0.1:3000"
	defaultEventsChannel     = "videoforge:tasks"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	uploadSubdir             = "uploads"
	processedSubdir          = "processed"
	logSubdir                = "logs"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Worker: Worker{
			Concurrency:        defaultConcurrency,
			MaxRetries:         defaultMaxRetries,
			IdlePollInterval:   Seconds(defaultIdlePollSeconds),
			BusyPollInterval:   Seconds(defaultBusyPollSeconds),
			ErrorRetryInterval: Seconds(defaultErrorRetrySeconds),
			ProgressInterval:   Seconds(defaultProgressSeconds),
			ShutdownGrace:      Seconds(defaultShutdownSeconds),
		},
		FFmpeg: FFmpeg{
			Binary:      defaultFFmpegBinary,
			ProbeBinary: defaultFFprobeBinary,
		},
		Resources: Resources{
			Enabled:        false,
			MinFreeMemory:  defaultMinFreeMemory,
			MinFreeDisk:    defaultMinFreeDisk,
			SampleInterval: Duration{Duration: defaultResourceSample},
		},
		Upload: Upload{
			MaxSize: defaultUploadMaxSize,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Events: Events{
			Channel: defaultEventsChannel,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
