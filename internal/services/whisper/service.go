package whisper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"storyreel/internal/config"
	"storyreel/internal/services"
	"storyreel/internal/subtitles"
)

// Service runs the whisper CLI to transcribe narration audio into timed
// segments. Transcription is authoritative for subtitle timing: it reflects
// the rendered audio rather than the input script.
type Service struct {
	binary        string
	model         string
	timeout       time.Duration
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a whisper service from configuration.
func NewService(cfg *config.Config) *Service {
	timeout := time.Duration(cfg.Transcription.TimeoutSeconds) * time.Second
	return &Service{
		binary:  cfg.Transcription.Binary,
		model:   cfg.Transcription.Model,
		timeout: timeout,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Available reports whether the transcription binary can be found.
func (s *Service) Available() error {
	if _, err := exec.LookPath(s.binary); err != nil {
		return services.Wrap(services.ErrPermanentFailure, "subtitle", "locate transcriber",
			fmt.Sprintf("%s not found on PATH", s.binary), err)
	}
	return nil
}

// Transcribe runs whisper on audioPath and returns the parsed transcript.
// Whisper writes <basename>.json next to the requested output directory; the
// file is left in place so the subtitle stage can record it as an artifact.
func (s *Service) Transcribe(ctx context.Context, audioPath, outputDir string) (*subtitles.Transcript, string, error) {
	if strings.TrimSpace(audioPath) == "" {
		return nil, "", services.Wrap(services.ErrInvalidInput, "subtitle", "transcribe", "audio path is empty", nil)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return nil, "", services.Wrap(services.ErrInvalidInput, "subtitle", "transcribe",
			fmt.Sprintf("audio file %s is unreadable", audioPath), err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "subtitle", "transcribe", "ensure output dir", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	args := []string{
		audioPath,
		"--model", s.model,
		"--output_format", "json",
		"--output_dir", outputDir,
		"--fp16", "False",
	}
	if err := s.run(ctx, s.binary, args...); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, "", services.Wrap(services.ErrTimeout, "subtitle", "transcribe", "transcription timed out", err)
		}
		return nil, "", services.Wrap(services.ErrTransient, "subtitle", "transcribe", "run transcriber", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outputDir, baseName+".json")
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "subtitle", "transcribe",
			fmt.Sprintf("transcriber produced no output at %s", jsonPath), err)
	}
	transcript, err := subtitles.ParseTranscript(data)
	if err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "subtitle", "transcribe", "parse transcript", err)
	}
	if len(transcript.Segments) == 0 {
		return nil, "", services.Wrap(services.ErrInvalidInput, "subtitle", "transcribe",
			"transcript contains no segments; audio may be silent", nil)
	}
	return transcript, jsonPath, nil
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
