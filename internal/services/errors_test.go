package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"videoforge/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "ffmpeg", "encode", "exit status 1", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"ffmpeg", "encode", "exit status 1"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestIsRetryable(t *testing.T) {
	if services.IsRetryable(nil) {
		t.Fatal("nil error should not be retryable")
	}
	if services.IsRetryable(fmt.Errorf("encode: %w", context.Canceled)) {
		t.Fatal("canceled encode should not be retried")
	}
	tool := services.Wrap(services.ErrExternalTool, "ffmpeg", "encode", "failed", errors.New("exit 1"))
	if !services.IsRetryable(tool) {
		t.Fatal("external tool failure should be retryable")
	}
}

func TestIsUserError(t *testing.T) {
	if !services.IsUserError(services.Wrap(services.ErrNotFound, "media", "video", "missing", nil)) {
		t.Fatal("not found should be a user error")
	}
	if services.IsUserError(services.Wrap(services.ErrExternalTool, "ffmpeg", "encode", "", nil)) {
		t.Fatal("tool failure is not a user error")
	}
}

func TestMessageReturnsCallerFacingText(t *testing.T) {
	err := services.Wrap(services.ErrNotFound, "videos", "get", "Video not found", errors.New("sql: no rows"))
	if got := services.Message(err); got != "Video not found" {
		t.Fatalf("unexpected message %q", got)
	}
	wrapped := fmt.Errorf("handler: %w", err)
	if got := services.Message(wrapped); got != "Video not found" {
		t.Fatalf("expected message through wrapping, got %q", got)
	}
	if got := services.Message(errors.New("plain")); got != "plain" {
		t.Fatalf("expected fallback to Error(), got %q", got)
	}
	if services.Message(nil) != "" {
		t.Fatal("expected empty message for nil")
	}
}
