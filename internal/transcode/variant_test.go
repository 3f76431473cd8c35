package transcode_test

import (
	"path/filepath"
	"reflect"
	"testing"

	"videoforge/internal/transcode"
)

func TestParamsFor(t *testing.T) {
	tests := []struct {
		variant string
		size    string
		bitrate string
		ext     string
		video   string
		audio   string
		speed   []string
	}{
		{"MP4-1080p", "1920x1080", "5000k", "mp4", "libx264", "aac", []string{"-preset", "fast"}},
		{"MP4-720p", "1280x720", "2500k", "mp4", "libx264", "aac", []string{"-preset", "fast"}},
		{"WebM-480p", "854x480", "1000k", "webm", "libvpx-vp9", "libopus", []string{"-deadline", "realtime", "-cpu-used", "4"}},
		{"MOV-720p", "1280x720", "2500k", "mov", "libx264", "aac", []string{"-preset", "fast"}},
		{"MP4-4K", "854x480", "1000k", "mp4", "libx264", "aac", []string{"-preset", "fast"}},
		{"AVI-720p", "1280x720", "2500k", "mp4", "libx264", "aac", []string{"-preset", "fast"}},
		{"garbage", "854x480", "1000k", "mp4", "libx264", "aac", []string{"-preset", "fast"}},
	}
	for _, tc := range tests {
		t.Run(tc.variant, func(t *testing.T) {
			p := transcode.ParamsFor(tc.variant)
			if p.Size() != tc.size || p.VideoBitrate != tc.bitrate {
				t.Fatalf("got %s @ %s, want %s @ %s", p.Size(), p.VideoBitrate, tc.size, tc.bitrate)
			}
			if p.Extension != tc.ext || p.Container != tc.ext {
				t.Fatalf("got container %s ext %s, want %s", p.Container, p.Extension, tc.ext)
			}
			if p.VideoCodec != tc.video || p.AudioCodec != tc.audio {
				t.Fatalf("got codecs %s/%s, want %s/%s", p.VideoCodec, p.AudioCodec, tc.video, tc.audio)
			}
			if !reflect.DeepEqual(p.SpeedOptions, tc.speed) {
				t.Fatalf("got speed options %v, want %v", p.SpeedOptions, tc.speed)
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	got := transcode.OutputPath("/srv/processed", "abc123", "WebM-720p")
	if want := filepath.Join("/srv/processed", "abc123.webm"); got != want {
		t.Fatalf("OutputPath = %q, want %q", got, want)
	}
}

func TestValidate(t *testing.T) {
	for _, variant := range transcode.KnownVariants() {
		if err := transcode.Validate(variant); err != nil {
			t.Fatalf("Validate(%q) = %v", variant, err)
		}
	}
	for _, variant := range []string{"MP4-4K", "mkv-720p", "MP4"} {
		if err := transcode.Validate(variant); err == nil {
			t.Fatalf("expected Validate(%q) to fail", variant)
		}
	}
}
