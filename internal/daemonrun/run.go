package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"videoforge/internal/config"
	"videoforge/internal/daemon"
	"videoforge/internal/deps"
	"videoforge/internal/events"
	"videoforge/internal/logging"
	"videoforge/internal/media/ffmpeg"
	"videoforge/internal/preflight"
	"videoforge/internal/queue"
	"videoforge/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the videoforge daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = level
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(logging.String("run_id", uuid.NewString()))
	if !opts.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	logDependencySnapshot(logger, cfg)

	pidPath := filepath.Join(cfg.Paths.LogDir, "videoforge.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open task store", logging.Error(err))
		return err
	}

	engine, err := ffmpeg.NewFromConfig(cfg)
	if err != nil {
		_ = store.Close()
		return err
	}

	publisher, err := events.NewFromConfig(signalCtx, cfg)
	if err != nil {
		logging.WarnWithContext(logger, "event publisher unavailable", "events_disabled",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check events.redis_url"),
			logging.String(logging.FieldImpact, "task lifecycle events are not published"),
		)
		publisher = events.Noop{}
	}
	defer publisher.Close()

	wfOpts := []workflow.Option{workflow.WithPublisher(publisher)}
	if cfg.Resources.Enabled {
		wfOpts = append(wfOpts, workflow.WithCapacityGate(preflight.NewCapacityGate(cfg)))
	}
	manager := workflow.NewManager(cfg, store, engine, logger, wfOpts...)

	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	// Encodes must outlive the signal so Stop can give them the shutdown grace.
	if err := d.Start(context.WithoutCancel(cmdCtx)); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the lock file, api.bind and database access"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("videoforge daemon shutting down",
		logging.Int("in_flight", manager.InFlight()),
		logging.String(logging.FieldEventType, "daemon_shutdown"),
	)
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	statuses := preflight.CheckSystemDeps(cfg)
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Int("concurrency", cfg.Worker.Concurrency),
		logging.Bool("capacity_gate", cfg.Resources.Enabled),
		logging.Bool("events_enabled", strings.TrimSpace(cfg.Events.RedisURL) != ""),
		logging.Bool("api_auth", strings.TrimSpace(cfg.API.Token) != ""),
	}
	for _, status := range statuses {
		key := strings.ToLower(status.Name)
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)

	if err := deps.MissingRequired(statuses); err != nil {
		logging.WarnWithContext(logger, "required dependency missing", "dependency_missing",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "install ffmpeg or set ffmpeg.binary"),
			logging.String(logging.FieldImpact, "every encode will fail and exhaust its retries"),
		)
	}
}
