package workflow_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"videoforge/internal/events"
	"videoforge/internal/media/ffmpeg"
	"videoforge/internal/queue"
)

// fakeEngine records encode calls and writes a small output file unless a
// custom encode function is set.
type fakeEngine struct {
	mu        sync.Mutex
	calls     map[string]int
	active    int
	maxActive int

	duration float64
	probeErr error
	encode   func(ctx context.Context, job ffmpeg.EncodeJob, progress func(ffmpeg.Progress)) error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{calls: make(map[string]int), duration: 60}
}

func (e *fakeEngine) ProbeDuration(context.Context, string) (float64, error) {
	if e.probeErr != nil {
		return 0, e.probeErr
	}
	return e.duration, nil
}

func (e *fakeEngine) Encode(ctx context.Context, job ffmpeg.EncodeJob, progress func(ffmpeg.Progress)) error {
	e.mu.Lock()
	e.calls[job.OutputPath]++
	e.active++
	if e.active > e.maxActive {
		e.maxActive = e.active
	}
	encode := e.encode
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.active--
		e.mu.Unlock()
	}()

	if encode != nil {
		return encode(ctx, job, progress)
	}
	return os.WriteFile(job.OutputPath, []byte("encoded"), 0o644)
}

func (e *fakeEngine) totalCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0
	for _, n := range e.calls {
		total += n
	}
	return total
}

func (e *fakeEngine) peak() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxActive
}

// countingRepo wraps the real store and records progress-only writes.
type countingRepo struct {
	*queue.Store

	mu       sync.Mutex
	progress []int
}

func (r *countingRepo) UpdateTask(ctx context.Context, id string, update queue.TaskUpdate) error {
	if update.Status == nil && update.Progress != nil {
		r.mu.Lock()
		r.progress = append(r.progress, *update.Progress)
		r.mu.Unlock()
	}
	return r.Store.UpdateTask(ctx, id, update)
}

func (r *countingRepo) progressWrites() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.progress...)
}

// scriptedRepo serves a single fixed task and lets tests inject claim and
// lookup results.
type scriptedRepo struct {
	mu        sync.Mutex
	task      queue.Task
	claimWins bool
	findErrs  int
	finds     int
	claims    int
	updates   []queue.TaskUpdate
}

func (r *scriptedRepo) FindOldestQueued(context.Context) (*queue.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finds++
	if r.findErrs > 0 {
		r.findErrs--
		return nil, errors.New("database is locked")
	}
	if r.task.Status != queue.StatusQueued {
		return nil, nil
	}
	copy := r.task
	return &copy, nil
}

func (r *scriptedRepo) ClaimTask(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claims++
	if !r.claimWins || id != r.task.ID {
		return false, nil
	}
	r.task.Status = queue.StatusProcessing
	return true, nil
}

func (r *scriptedRepo) UpdateTask(_ context.Context, _ string, update queue.TaskUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update)
	if update.Status != nil {
		r.task.Status = *update.Status
	}
	return nil
}

func (r *scriptedRepo) TaskByID(context.Context, string) (*queue.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copy := r.task
	return &copy, nil
}

func (r *scriptedRepo) RequeueAllProcessing(context.Context, string, int) (queue.RecoveryResult, error) {
	return queue.RecoveryResult{}, nil
}

func (r *scriptedRepo) Stats(context.Context) (queue.Stats, error) {
	return queue.Stats{}, nil
}

func (r *scriptedRepo) status() queue.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.task.Status
}

func (r *scriptedRepo) counts() (finds, claims int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finds, r.claims
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type switchGate struct {
	mu  sync.Mutex
	err error
}

func (g *switchGate) Check(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

func (g *switchGate) set(err error) {
	g.mu.Lock()
	g.err = err
	g.mu.Unlock()
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func taskStatus(t *testing.T, store *queue.Store, id string) queue.Status {
	t.Helper()
	task, err := store.TaskByID(context.Background(), id)
	if err != nil {
		t.Fatalf("TaskByID: %v", err)
	}
	if task == nil {
		t.Fatalf("task %s missing", id)
	}
	return task.Status
}
