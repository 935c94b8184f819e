package services_test

import (
	"errors"
	"testing"

	"storyreel/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection reset")
	err := services.Wrap(services.ErrServiceUnavailable, "tts", "synthesize", "request failed", base)
	if !errors.Is(err, services.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error to survive, got %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "subtitle", "transcribe", "no output", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient fallback, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"quota", services.Wrap(services.ErrQuotaExceeded, "tts", "", "", nil), true},
		{"unavailable", services.Wrap(services.ErrServiceUnavailable, "tts", "", "", nil), true},
		{"timeout", services.Wrap(services.ErrTimeout, "render", "", "", nil), true},
		{"invalid input", services.Wrap(services.ErrInvalidInput, "script", "", "", nil), false},
		{"permanent", services.ErrPermanentFailure, false},
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := services.IsRetryable(tc.err); got != tc.want {
			t.Errorf("%s: IsRetryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestMessageStripsMarker(t *testing.T) {
	err := services.Wrap(services.ErrQuotaExceeded, "tts", "synthesize", "429 from upstream", nil)
	got := services.Message(err)
	want := "tts: synthesize: 429 from upstream"
	if got != want {
		t.Fatalf("Message = %q, want %q", got, want)
	}
}
