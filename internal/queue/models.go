package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an encode task.
type Status string

const (
	StatusQueued     Status = "QUEUED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// RecoveredMessage is written to tasks requeued by crash recovery.
const RecoveredMessage = "Recovered from worker crash"

// FailedMessagePrefix marks the error of a task that exhausted its retries.
const FailedMessagePrefix = "[PROCESSING_FAILED] "

var allStatuses = []Status{
	StatusQueued,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a case-insensitive string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToUpper(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transitions happen automatically.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Video is an uploaded source file.
type Video struct {
	ID           string
	OriginalName string
	Size         int64
	Path         string
	CreatedAt    time.Time
	Tasks        []*Task
}

// Task is one encode job producing a single variant of a video.
type Task struct {
	ID      string
	VideoID string
	Variant string
	Status  Status
	// Progress is nil until the first progress write.
	Progress       *int
	CurrentBitrate string
	Retries        int
	Error          string
	OutputPath     string
	OutputSize     int64
	CreatedAt      time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time

	// Populated by TaskByID from the owning video.
	VideoPath string
	VideoName string
}

// ProgressValue returns the persisted percent or 0 when none was written yet.
func (t *Task) ProgressValue() int {
	if t == nil || t.Progress == nil {
		return 0
	}
	return *t.Progress
}

// TaskUpdate is a partial update. Nil fields are left untouched.
type TaskUpdate struct {
	Status              *Status
	Progress            *int
	CurrentBitrate      *string
	ClearCurrentBitrate bool
	Error               *string
	IncrementRetries    bool
	StartedAt           *time.Time
	FinishedAt          *time.Time
	OutputPath          *string
	OutputSize          *int64
}

// IsEmpty reports whether the update would not change any column.
func (u TaskUpdate) IsEmpty() bool {
	return u.Status == nil &&
		u.Progress == nil &&
		u.CurrentBitrate == nil &&
		!u.ClearCurrentBitrate &&
		u.Error == nil &&
		!u.IncrementRetries &&
		u.StartedAt == nil &&
		u.FinishedAt == nil &&
		u.OutputPath == nil &&
		u.OutputSize == nil
}

// RecoveryResult counts the tasks crash recovery requeued and the tasks it
// failed because their retries were already spent.
type RecoveryResult struct {
	Requeued int64
	Failed   int64
}

// Total returns every task recovery changed.
func (r RecoveryResult) Total() int64 {
	return r.Requeued + r.Failed
}

// Stats aggregates task counts per status.
type Stats struct {
	Videos   int
	Total    int
	ByStatus map[Status]int
}

// Count returns the number of tasks with the given status.
func (s Stats) Count(status Status) int {
	if s.ByStatus == nil {
		return 0
	}
	return s.ByStatus[status]
}
