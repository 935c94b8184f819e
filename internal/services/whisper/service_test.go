package whisper_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"storyreel/internal/services"
	"storyreel/internal/services/whisper"
	"storyreel/internal/testsupport"
)

const sampleTranscript = `{
	"text": "Hello world. Goodbye.",
	"segments": [
		{"start": 0.0, "end": 1.5, "text": "Hello world."},
		{"start": 1.5, "end": 2.4, "text": "Goodbye."}
	]
}`

func TestTranscribeParsesSegments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := whisper.NewService(cfg)

	dir := t.TempDir()
	audioPath := filepath.Join(dir, "story.mp3")
	testsupport.WriteFile(t, audioPath, 128)

	var capturedArgs []string
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		capturedArgs = args
		// Whisper writes <basename>.json into the output directory.
		return os.WriteFile(filepath.Join(dir, "story.json"), []byte(sampleTranscript), 0o644)
	})

	transcript, jsonPath, err := svc.Transcribe(context.Background(), audioPath, dir)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(transcript.Segments) != 2 {
		t.Fatalf("segment count = %d, want 2", len(transcript.Segments))
	}
	if jsonPath != filepath.Join(dir, "story.json") {
		t.Errorf("jsonPath = %q", jsonPath)
	}

	wantArgs := map[string]string{"--model": cfg.Transcription.Model, "--output_format": "json", "--output_dir": dir}
	for flag, value := range wantArgs {
		found := false
		for i, arg := range capturedArgs {
			if arg == flag && i+1 < len(capturedArgs) && capturedArgs[i+1] == value {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("args missing %s %s: %v", flag, value, capturedArgs)
		}
	}
}

func TestTranscribeMissingAudio(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := whisper.NewService(cfg)

	_, _, err := svc.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"), t.TempDir())
	if !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTranscribeCommandFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := whisper.NewService(cfg)

	dir := t.TempDir()
	audioPath := filepath.Join(dir, "story.mp3")
	testsupport.WriteFile(t, audioPath, 128)
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return fmt.Errorf("boom")
	})

	_, _, err := svc.Transcribe(context.Background(), audioPath, dir)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}

func TestTranscribeEmptyTranscriptRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := whisper.NewService(cfg)

	dir := t.TempDir()
	audioPath := filepath.Join(dir, "story.mp3")
	testsupport.WriteFile(t, audioPath, 128)
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return os.WriteFile(filepath.Join(dir, "story.json"), []byte(`{"text":"","segments":[]}`), 0o644)
	})

	_, _, err := svc.Transcribe(context.Background(), audioPath, dir)
	if !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAvailable(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("whisper"))
	svc := whisper.NewService(cfg)
	if err := svc.Available(); err != nil {
		t.Fatalf("Available with stubbed binary: %v", err)
	}

	cfg2 := testsupport.NewConfig(t)
	cfg2.Transcription.Binary = "definitely-not-a-real-binary"
	if err := whisper.NewService(cfg2).Available(); !errors.Is(err, services.ErrPermanentFailure) {
		t.Fatalf("expected ErrPermanentFailure, got %v", err)
	}
}
