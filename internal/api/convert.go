package api

import (
	"time"

	"videoforge/internal/deps"
	"videoforge/internal/queue"
	"videoforge/internal/workflow"
)

// FromTask converts a task row to its API representation.
func FromTask(task *queue.Task) Task {
	if task == nil {
		return Task{}
	}
	dto := Task{
		ID:             task.ID,
		VideoID:        task.VideoID,
		Variant:        task.Variant,
		Status:         string(task.Status),
		CurrentBitrate: task.CurrentBitrate,
		Retries:        task.Retries,
		Error:          task.Error,
		OutputPath:     task.OutputPath,
		OutputSize:     task.OutputSize,
		CreatedAt:      formatTime(task.CreatedAt),
	}
	if task.Progress != nil {
		p := *task.Progress
		dto.Progress = &p
	}
	if task.StartedAt != nil {
		dto.StartedAt = formatTime(*task.StartedAt)
	}
	if task.FinishedAt != nil {
		dto.FinishedAt = formatTime(*task.FinishedAt)
	}
	if task.Status == queue.StatusCompleted && task.OutputPath != "" {
		dto.DownloadURL = "/download/" + task.ID
	}
	return dto
}

// FromTasks converts a slice of tasks. The result is never nil so it encodes
// as an empty JSON array.
func FromTasks(tasks []*queue.Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		if task == nil {
			continue
		}
		out = append(out, FromTask(task))
	}
	return out
}

// FromVideo converts a video row and its tasks.
func FromVideo(video *queue.Video) Video {
	if video == nil {
		return Video{Tasks: []Task{}}
	}
	return Video{
		ID:           video.ID,
		OriginalName: video.OriginalName,
		Size:         video.Size,
		Path:         video.Path,
		CreatedAt:    formatTime(video.CreatedAt),
		Tasks:        FromTasks(video.Tasks),
	}
}

// FromVideos converts a slice of videos, preserving order.
func FromVideos(videos []*queue.Video) []Video {
	out := make([]Video, 0, len(videos))
	for _, video := range videos {
		if video == nil {
			continue
		}
		out = append(out, FromVideo(video))
	}
	return out
}

// FromStatusSummary converts scheduler diagnostics.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	status := WorkflowStatus{
		Running:     summary.Running,
		InFlight:    summary.InFlight,
		Concurrency: summary.Concurrency,
		QueueStats:  MergeQueueStats(summary.QueueStats.ByStatus),
		Videos:      summary.QueueStats.Videos,
		LastError:   summary.LastError,
	}
	if summary.LastTask != nil {
		t := FromTask(summary.LastTask)
		status.LastTask = &t
	}
	return status
}

// MergeQueueStats returns counts for every status, filling zeros for
// statuses without rows.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

// FromDependencies converts binary checks.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, DependencyStatus{
			Name:        s.Name,
			Command:     s.Command,
			Path:        s.Path,
			Description: s.Description,
			Optional:    s.Optional,
			Available:   s.Available,
			Detail:      s.Detail,
		})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
