package stage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"storyreel/internal/services"
)

func TestReadArtifact_Valid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.txt")
	if err := os.WriteFile(path, []byte("narration"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := ReadArtifact("load script", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "narration" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestReadArtifact_EmptyPath(t *testing.T) {
	_, err := ReadArtifact("load script", "")
	if !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestReadArtifact_Missing(t *testing.T) {
	_, err := ReadArtifact("load script", filepath.Join(t.TempDir(), "missing.txt"))
	if !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestReadArtifact_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := ReadArtifact("load script", path)
	if !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
