package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/shlex"

	"videoforge/internal/config"
	"videoforge/internal/media/ffprobe"
	"videoforge/internal/services"
	"videoforge/internal/transcode"
)

var commandContext = exec.CommandContext

const stderrTailLines = 3

// EncodeJob describes one encode from a source file to a variant output.
type EncodeJob struct {
	InputPath  string
	OutputPath string
	Params     transcode.Params
}

// Option configures the engine.
type Option func(*Engine)

// WithBinary overrides the ffmpeg executable.
func WithBinary(binary string) Option {
	return func(e *Engine) {
		if strings.TrimSpace(binary) != "" {
			e.binary = binary
		}
	}
}

// WithProbeBinary overrides the ffprobe executable.
func WithProbeBinary(binary string) Option {
	return func(e *Engine) {
		if strings.TrimSpace(binary) != "" {
			e.probeBinary = binary
		}
	}
}

// WithExtraArgs appends encoder arguments before the progress flags.
func WithExtraArgs(args ...string) Option {
	return func(e *Engine) {
		e.extraArgs = append(e.extraArgs, args...)
	}
}

// Engine wraps the ffmpeg and ffprobe command-line tools.
type Engine struct {
	binary      string
	probeBinary string
	extraArgs   []string
}

// NewEngine constructs an engine using defaults.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{binary: "ffmpeg", probeBinary: "ffprobe"}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewFromConfig builds an engine from the [ffmpeg] config section.
func NewFromConfig(cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		return NewEngine(), nil
	}
	opts := []Option{WithBinary(cfg.FFmpegBinary()), WithProbeBinary(cfg.FFprobeBinary())}
	if extra := strings.TrimSpace(cfg.FFmpeg.ExtraArgs); extra != "" {
		args, err := shlex.Split(extra)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "ffmpeg", "parse extra_args", extra, err)
		}
		opts = append(opts, WithExtraArgs(args...))
	}
	return NewEngine(opts...), nil
}

// ProbeDuration returns the source duration in seconds. Any error means the
// duration is unavailable.
func (e *Engine) ProbeDuration(ctx context.Context, path string) (float64, error) {
	seconds, err := ffprobe.Duration(ctx, e.probeBinary, path)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "ffprobe", "duration", "", err)
	}
	return seconds, nil
}

// Args renders the ffmpeg argument list for job.
func (e *Engine) Args(job EncodeJob) []string {
	p := job.Params
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", job.InputPath,
		"-s", p.Size(),
		"-b:v", p.VideoBitrate,
		"-c:v", p.VideoCodec,
		"-c:a", p.AudioCodec,
	}
	args = append(args, p.SpeedOptions...)
	args = append(args, e.extraArgs...)
	if p.Container != "" {
		args = append(args, "-f", p.Container)
	}
	args = append(args, "-progress", "pipe:1", "-nostats", job.OutputPath)
	return args
}

// Encode runs ffmpeg for job, calling progress for every progress block. The
// return value is the terminal signal: nil on success, an error otherwise.
// When ctx is canceled the returned error wraps ctx.Err().
func (e *Engine) Encode(ctx context.Context, job EncodeJob, progress func(Progress)) error {
	if strings.TrimSpace(job.InputPath) == "" {
		return services.Wrap(services.ErrValidation, "ffmpeg", "encode", "input path required", nil)
	}
	if strings.TrimSpace(job.OutputPath) == "" {
		return services.Wrap(services.ErrValidation, "ffmpeg", "encode", "output path required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "ffmpeg", "encode", "create output directory", err)
	}

	cmd := commandContext(ctx, e.binary, e.Args(job)...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "start", e.binary, err)
	}

	tail := newLineTail(stderrTailLines)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tail.consume(stderr)
	}()

	readErr := readProgress(stdout, progress)
	wg.Wait()
	waitErr := cmd.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("ffmpeg encode interrupted: %w", ctxErr)
	}
	if waitErr != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "encode", tail.String(), waitErr)
	}
	if readErr != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "read progress", "", readErr)
	}
	return nil
}

// readProgress parses progress blocks until r closes. The pipe is drained
// even when scanning stops early so ffmpeg never blocks on a full pipe.
func readProgress(r io.Reader, progress func(Progress)) error {
	var block progressBlock
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if block.apply(scanner.Text()) && progress != nil {
			progress(block.snapshot())
		}
	}
	err := scanner.Err()
	drain(r)
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}

func drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, r)
}

// lineTail keeps the last n non-empty lines written to stderr.
type lineTail struct {
	mu    sync.Mutex
	max   int
	lines []string
}

func newLineTail(n int) *lineTail {
	return &lineTail{max: n}
}

func (t *lineTail) consume(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		t.mu.Lock()
		t.lines = append(t.lines, line)
		if len(t.lines) > t.max {
			t.lines = t.lines[len(t.lines)-t.max:]
		}
		t.mu.Unlock()
	}
	drain(r)
}

// String joins the retained lines, or returns "no stderr output".
func (t *lineTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.lines) == 0 {
		return "no stderr output"
	}
	return strings.Join(t.lines, " | ")
}
