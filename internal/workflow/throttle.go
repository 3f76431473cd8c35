package workflow

import (
	"fmt"
	"math"
	"time"

	"videoforge/internal/queue"
)

// progressThrottle limits progress writes for one task to one per window.
// The first valid sample is written immediately.
type progressThrottle struct {
	window  time.Duration
	now     func() time.Time
	last    time.Time
	written bool
}

func newProgressThrottle(window time.Duration, now func() time.Time) *progressThrottle {
	if now == nil {
		now = time.Now
	}
	return &progressThrottle{window: window, now: now}
}

// next returns the update to persist for a sample, or false when the sample
// falls inside the current window or carries nothing valid. A sample with no
// valid fields does not open a window.
func (t *progressThrottle) next(percent, kbps float64) (queue.TaskUpdate, bool) {
	update := progressUpdate(percent, kbps)
	if update.IsEmpty() {
		return update, false
	}
	now := t.now()
	if t.written && now.Sub(t.last) < t.window {
		return queue.TaskUpdate{}, false
	}
	t.last = now
	t.written = true
	return update, true
}

// progressUpdate keeps only the fields that are present and valid. Zero
// percent is valid.
func progressUpdate(percent, kbps float64) queue.TaskUpdate {
	var update queue.TaskUpdate
	if !math.IsNaN(percent) && !math.IsInf(percent, 0) && percent >= 0 {
		value := min(int(math.Ceil(percent)), 100)
		update.Progress = &value
	}
	if label := bitrateLabel(kbps); label != "" {
		update.CurrentBitrate = &label
	}
	return update
}

func bitrateLabel(kbps float64) string {
	if math.IsNaN(kbps) || math.IsInf(kbps, 0) || kbps <= 0 {
		return ""
	}
	return fmt.Sprintf("%d kbps", int64(math.Round(kbps)))
}
