package workflow

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"videoforge/internal/config"
	"videoforge/internal/events"
	"videoforge/internal/logging"
	"videoforge/internal/media/ffmpeg"
	"videoforge/internal/queue"
)

// Repository is the task storage the scheduler drives. queue.Store satisfies it.
type Repository interface {
	FindOldestQueued(ctx context.Context) (*queue.Task, error)
	ClaimTask(ctx context.Context, id string) (bool, error)
	UpdateTask(ctx context.Context, id string, update queue.TaskUpdate) error
	TaskByID(ctx context.Context, id string) (*queue.Task, error)
	RequeueAllProcessing(ctx context.Context, message string, maxRetries int) (queue.RecoveryResult, error)
	Stats(ctx context.Context) (queue.Stats, error)
}

// Engine probes and encodes media. ffmpeg.Engine satisfies it.
type Engine interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	Encode(ctx context.Context, job ffmpeg.EncodeJob, progress func(ffmpeg.Progress)) error
}

// CapacityGate vetoes new claims while the host is saturated.
type CapacityGate interface {
	Check(ctx context.Context) error
}

type settings struct {
	concurrency        int
	maxRetries         int
	idlePollInterval   time.Duration
	busyPollInterval   time.Duration
	errorRetryInterval time.Duration
	progressInterval   time.Duration
	outputDir          string
}

func settingsFromConfig(cfg *config.Config) settings {
	return settings{
		concurrency:        cfg.Worker.Concurrency,
		maxRetries:         cfg.Worker.MaxRetries,
		idlePollInterval:   cfg.Worker.IdlePollInterval.Duration,
		busyPollInterval:   cfg.Worker.BusyPollInterval.Duration,
		errorRetryInterval: cfg.Worker.ErrorRetryInterval.Duration,
		progressInterval:   cfg.Worker.ProgressInterval.Duration,
		outputDir:          cfg.Paths.ProcessedDir,
	}
}

// Manager coordinates claiming and executing encode tasks.
type Manager struct {
	settings  settings
	repo      Repository
	engine    Engine
	logger    *slog.Logger
	publisher events.Publisher
	gate      CapacityGate
	now       func() time.Time

	inFlight atomic.Int64

	mu          sync.RWMutex
	running     bool
	cancel      context.CancelFunc
	loopDone    chan struct{}
	lastErr     error
	lastTask    *queue.Task
	gateBlocked bool
}

// Option configures optional Manager collaborators.
type Option func(*Manager)

// WithPublisher sends lifecycle events to the given publisher.
func WithPublisher(p events.Publisher) Option {
	return func(m *Manager) {
		if p != nil {
			m.publisher = p
		}
	}
}

// WithCapacityGate consults the gate before every claim.
func WithCapacityGate(g CapacityGate) Option {
	return func(m *Manager) {
		m.gate = g
	}
}

// WithClock overrides the time source used for timestamps and the progress window.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs a scheduler over the given repository and engine.
func NewManager(cfg *config.Config, repo Repository, engine Engine, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		settings:  settingsFromConfig(cfg),
		repo:      repo,
		engine:    engine,
		logger:    logging.NewComponentLogger(logger, "transcode-scheduler"),
		publisher: events.Noop{},
		now:       time.Now,
	}
	if m.settings.concurrency <= 0 {
		m.settings.concurrency = 1
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// InFlight reports the number of encodes currently executing.
func (m *Manager) InFlight() int {
	return int(m.inFlight.Load())
}
