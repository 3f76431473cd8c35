package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"videoforge/internal/api"
	"videoforge/internal/daemon"
	"videoforge/internal/queue"
	"videoforge/internal/testsupport"
)

func TestVideoAddQueuesVariants(t *testing.T) {
	env := setupCLITestEnv(t)
	source := filepath.Join(env.baseDir, "holiday.mp4")
	testsupport.WriteFile(t, source, 2048)

	out := env.run(t, "video", "add", source, "--variant", "MP4-720p", "--variant", "WebM-480p")
	requireContains(t, out, "holiday.mp4")
	requireContains(t, out, "2.0 kB")
	if got := strings.Count(out, "Queued task"); got != 2 {
		t.Fatalf("expected 2 queued tasks, got %d in %q", got, out)
	}

	out = env.run(t, "video", "list")
	requireContains(t, out, "holiday.mp4")

	out = env.run(t, "task", "list", "--json")
	var tasks []api.Task
	if err := json.Unmarshal([]byte(out), &tasks); err != nil {
		t.Fatalf("decode task list: %v\n%s", err, out)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].Variant != "MP4-720p" || tasks[0].Status != string(queue.StatusQueued) {
		t.Fatalf("unexpected first task %+v", tasks[0])
	}

	entries, err := os.ReadDir(env.cfg.Paths.UploadDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one stored upload, got %d (%v)", len(entries), err)
	}
}

func TestVideoAddRejectsDirectory(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"video", "add", env.baseDir}, env.configPath); err == nil {
		t.Fatal("expected directory import to fail")
	}
}

func TestTaskShowListAndDelete(t *testing.T) {
	env := setupCLITestEnv(t)
	video := testsupport.SeedVideo(t, env.store, env.cfg, "clip.mov")
	tasks := testsupport.SeedTasks(t, env.store, video, "MOV-1080p", "MP4-480p")

	out := env.run(t, "task", "show", tasks[0].ID)
	requireContains(t, out, "MOV-1080p")
	requireContains(t, out, "Queued")

	out = env.run(t, "task", "list", "--status", "queued")
	requireContains(t, out, tasks[0].ID)
	requireContains(t, out, "2 task(s)")

	out = env.run(t, "task", "list", "--status", "failed")
	requireContains(t, out, "No tasks")

	if _, _, err := runCLI(t, []string{"task", "list", "--status", "paused"}, env.configPath); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}

	out = env.run(t, "task", "delete", tasks[0].ID, "missing-id")
	requireContains(t, out, "Task "+tasks[0].ID+" deleted")
	requireContains(t, out, "Task missing-id not found")

	out, _, err := runCLI(t, []string{"task", "delete", tasks[0].ID}, env.configPath)
	if err == nil {
		t.Fatal("expected delete of a removed task to fail")
	}
	requireContains(t, out, "not found")

	if _, _, err := runCLI(t, []string{"task", "show", tasks[0].ID}, env.configPath); err == nil {
		t.Fatal("expected show of a removed task to fail")
	}
}

func TestQueueStatusAndRecover(t *testing.T) {
	env := setupCLITestEnv(t)
	video := testsupport.SeedVideo(t, env.store, env.cfg, "clip.mp4")
	tasks := testsupport.SeedTasks(t, env.store, video, "MP4-720p", "MP4-480p")
	if claimed, err := env.store.ClaimTask(context.Background(), tasks[0].ID); err != nil || !claimed {
		t.Fatalf("claim: %v %v", claimed, err)
	}

	out := env.run(t, "queue", "status")
	requireContains(t, out, "Not running")
	requireContains(t, out, "Processing")
	requireContains(t, out, "2 task(s) across 1 video(s)")

	out = env.run(t, "queue", "recover")
	requireContains(t, out, "Requeued 1 task(s)")

	task := testsupport.MustTask(t, env.store, tasks[0].ID)
	if task.Status != queue.StatusQueued {
		t.Fatalf("expected QUEUED after recover, got %s", task.Status)
	}
	if task.Error != queue.RecoveredMessage {
		t.Fatalf("expected recovery message, got %q", task.Error)
	}
}

func TestQueueRecoverRefusesWhileDaemonHoldsLock(t *testing.T) {
	env := setupCLITestEnv(t)
	lock := flock.New(daemon.LockPath(env.cfg))
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("take lock: %v %v", ok, err)
	}
	t.Cleanup(func() { _ = lock.Unlock() })

	_, _, err = runCLI(t, []string{"queue", "recover"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "daemon is running") {
		t.Fatalf("expected running daemon error, got %v", err)
	}

	out := env.run(t, "queue", "status")
	requireContains(t, out, "Running")
}

func TestQueueClearRequiresConfirmation(t *testing.T) {
	env := setupCLITestEnv(t)
	video := testsupport.SeedVideo(t, env.store, env.cfg, "clip.mp4")
	testsupport.SeedTasks(t, env.store, video, "MP4-720p")

	if _, _, err := runCLI(t, []string{"queue", "clear"}, env.configPath); err == nil {
		t.Fatal("expected clear without --yes to fail")
	}

	out := env.run(t, "queue", "clear", "--yes")
	requireContains(t, out, "System cleared successfully")
	requireContains(t, out, "1 video(s), 1 task(s)")

	stats, err := env.store.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 0 || stats.Videos != 0 {
		t.Fatalf("expected empty store, got %+v", stats)
	}
}

func TestDepsReportsStubbedBinaries(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.run(t, "deps")
	requireContains(t, out, "== Dependencies ==")
	requireContains(t, out, "FFmpeg:")
	requireContains(t, out, "[OK] Ready")
	requireContains(t, out, "Upload directory:")
}
