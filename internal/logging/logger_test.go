package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"storyreel/internal/services"
)

func TestConsoleHandlerFormatsRecord(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("stage started", String(FieldComponent, "voice"), String("voice_id", "adam"))

	line := buf.String()
	if !strings.Contains(line, "INFO voice: stage started") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, "voice_id=adam") {
		t.Fatalf("missing attribute in console line: %q", line)
	}
}

func TestConsoleHandlerQuotesSpacedValues(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, new(slog.LevelVar)))

	logger.Warn("retry scheduled", String("reason", "quota exceeded"))

	if !strings.Contains(buf.String(), `reason="quota exceeded"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestWithContextAttachesFields(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(newConsoleHandler(&buf, new(slog.LevelVar)))

	ctx := services.WithStoryID(context.Background(), "abc123")
	ctx = services.WithStage(ctx, "tts")

	WithContext(ctx, base).Info("synthesizing")

	line := buf.String()
	if !strings.Contains(line, "story_id=abc123") || !strings.Contains(line, "stage=tts") {
		t.Fatalf("context fields missing from %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("verbose"); got != slog.LevelInfo {
		t.Fatalf("parseLevel = %v, want info", got)
	}
	if got := parseLevel("debug"); got != slog.LevelDebug {
		t.Fatalf("parseLevel = %v, want debug", got)
	}
}
