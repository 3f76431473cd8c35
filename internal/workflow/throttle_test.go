package workflow

import (
	"math"
	"testing"
	"time"

	"videoforge/internal/media/ffmpeg"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func TestProgressThrottleWindow(t *testing.T) {
	clock := &stepClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	throttle := newProgressThrottle(time.Second, clock.Now)

	writes := 0
	for i := range 10 {
		if _, ok := throttle.next(float64(i), 1200); ok {
			writes++
		}
		clock.advance(50 * time.Millisecond)
	}
	if writes != 1 {
		t.Fatalf("expected 1 write for 10 samples in 500ms, got %d", writes)
	}

	clock.advance(600 * time.Millisecond)
	update, ok := throttle.next(42.1, 0)
	if !ok {
		t.Fatal("expected write after window elapsed")
	}
	if update.Progress == nil || *update.Progress != 43 {
		t.Fatalf("expected ceil percent 43, got %v", update.Progress)
	}
	if update.CurrentBitrate != nil {
		t.Fatalf("expected no bitrate for zero kbps, got %q", *update.CurrentBitrate)
	}
}

func TestProgressThrottlePersistsZeroPercent(t *testing.T) {
	throttle := newProgressThrottle(time.Second, time.Now)
	update, ok := throttle.next(0, 0)
	if !ok {
		t.Fatal("expected zero percent to be written")
	}
	if update.Progress == nil || *update.Progress != 0 {
		t.Fatalf("expected progress 0, got %v", update.Progress)
	}
}

func TestProgressThrottleEmptySampleKeepsWindowOpen(t *testing.T) {
	clock := &stepClock{now: time.Unix(0, 0)}
	throttle := newProgressThrottle(time.Second, clock.Now)

	if _, ok := throttle.next(-1, 0); ok {
		t.Fatal("expected empty sample to be dropped")
	}
	if _, ok := throttle.next(math.NaN(), math.Inf(1)); ok {
		t.Fatal("expected invalid sample to be dropped")
	}
	clock.advance(10 * time.Millisecond)
	update, ok := throttle.next(5, 800.6)
	if !ok {
		t.Fatal("expected first valid sample to be written")
	}
	if update.CurrentBitrate == nil || *update.CurrentBitrate != "801 kbps" {
		t.Fatalf("unexpected bitrate label: %v", update.CurrentBitrate)
	}
}

func TestProgressUpdateClampsPercent(t *testing.T) {
	update := progressUpdate(100.4, 0)
	if update.Progress == nil || *update.Progress != 100 {
		t.Fatalf("expected clamp to 100, got %v", update.Progress)
	}
	update = progressUpdate(99.01, 0)
	if *update.Progress != 100 {
		t.Fatalf("expected ceil to 100, got %d", *update.Progress)
	}
}

func TestEffectivePercent(t *testing.T) {
	tests := []struct {
		name     string
		progress ffmpeg.Progress
		duration float64
		want     float64
	}{
		{name: "engine percent", progress: ffmpeg.Progress{Percent: 12.5, Timemark: "00:00:50.00"}, duration: 100, want: 12.5},
		{name: "engine zero percent", progress: ffmpeg.Progress{Percent: 0, Timemark: "00:00:50.00"}, duration: 100, want: 0},
		{name: "timemark fallback", progress: ffmpeg.Progress{Percent: -1, Timemark: "00:00:50.00"}, duration: 100, want: 50},
		{name: "no duration", progress: ffmpeg.Progress{Percent: -1, Timemark: "00:00:50.00"}, want: -1},
		{name: "no timemark", progress: ffmpeg.Progress{Percent: -1}, duration: 100, want: -1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := effectivePercent(tc.progress, tc.duration); math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("effectivePercent = %v, want %v", got, tc.want)
			}
		})
	}
}
