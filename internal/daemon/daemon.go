package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"videoforge/internal/api"
	"videoforge/internal/config"
	"videoforge/internal/deps"
	"videoforge/internal/logging"
	"videoforge/internal/preflight"
	"videoforge/internal/queue"
	"videoforge/internal/workflow"
)

// Daemon coordinates the scheduler and the HTTP API and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	media    *api.MediaService
	queueSvc *api.QueueService
	apiSrv   *apiServer

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	mu        sync.Mutex
	startedAt time.Time
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StartedAt    time.Time
	Workflow     workflow.StatusSummary
	DatabasePath string
	LockFilePath string
	APIBind      string
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, logger, and workflow manager")
	}

	lockPath := LockPath(cfg)
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		media:    api.NewMediaService(cfg, store, logger),
		queueSvc: api.NewQueueService(store),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.apiSrv = newAPIServer(cfg, d, logger)
	return d, nil
}

// LockPath returns the single-instance lock file for cfg.
func LockPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "videoforge.lock")
}

// IsRunning reports whether another process holds the daemon lock.
func IsRunning(cfg *config.Config) (bool, error) {
	lock := flock.New(LockPath(cfg))
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe daemon lock: %w", err)
	}
	if ok {
		_ = lock.Unlock()
		return false, nil
	}
	return true, nil
}

// Start acquires the daemon lock, requeues tasks left PROCESSING by a previous
// run, starts the scheduler and finally the API server. A failed recovery is
// logged and does not prevent the scheduler from starting.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another videoforge daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	fail := func(err error) error {
		cancel()
		_ = d.lock.Unlock()
		return err
	}

	if _, err := d.workflow.Recover(runCtx); err != nil {
		logging.WarnWithContext(d.logger, "crash recovery failed", "recovery_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "restart the daemon once the database is readable"),
			logging.String(logging.FieldImpact, "tasks left PROCESSING by the previous run stay stuck until recovered"),
		)
	}
	if err := d.workflow.Start(runCtx); err != nil {
		return fail(fmt.Errorf("start workflow: %w", err))
	}
	if err := d.apiSrv.start(runCtx); err != nil {
		d.workflow.Stop()
		return fail(err)
	}

	d.mu.Lock()
	d.cancel = cancel
	d.startedAt = time.Now()
	d.mu.Unlock()
	d.running.Store(true)

	d.logger.Info("videoforge daemon started",
		logging.String("lock", d.lockPath),
		logging.String("database", d.store.Path()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop shuts down the API server and the scheduler, waits up to the
// configured grace period for in-flight encodes and releases the lock.
// Encodes still running after the grace period are interrupted; they stay
// PROCESSING and are requeued on the next start.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.apiSrv.stop()
	d.workflow.Stop()

	grace := d.cfg.Worker.ShutdownGrace.Duration
	waitCtx, cancelWait := context.WithTimeout(context.Background(), grace)
	if err := d.workflow.WaitIdle(waitCtx); err != nil {
		logging.WarnWithContext(d.logger, "encodes still running after shutdown grace", "shutdown_grace_exceeded",
			logging.Int("in_flight", d.workflow.InFlight()),
			logging.Duration("grace", grace),
			logging.String(logging.FieldErrorHint, "increase worker.shutdown_grace for long encodes"),
			logging.String(logging.FieldImpact, "interrupted tasks are requeued on next start"),
		)
	}
	cancelWait()

	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mu.Unlock()

	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the lock file if no daemon is running"),
			logging.String(logging.FieldImpact, "next start may report another instance"),
		)
	}
	d.running.Store(false)
	d.logger.Info("videoforge daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddress returns the bound listener address, or "" when the API is
// disabled or not started.
func (d *Daemon) APIAddress() string {
	return d.apiSrv.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.Lock()
	startedAt := d.startedAt
	d.mu.Unlock()

	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StartedAt:    startedAt,
		Workflow:     d.workflow.Status(ctx),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		APIBind:      d.apiSrv.address(),
		Dependencies: preflight.CheckSystemDeps(d.cfg),
	}
}
