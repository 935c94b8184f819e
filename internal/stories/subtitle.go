package stories

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"storyreel/internal/config"
	"storyreel/internal/fileutil"
	"storyreel/internal/logging"
	"storyreel/internal/services"
	"storyreel/internal/services/whisper"
	"storyreel/internal/stage"
	"storyreel/internal/store"
	"storyreel/internal/subtitles"
)

// Transcriber produces timed segments from narration audio.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, outputDir string) (*subtitles.Transcript, string, error)
	Available() error
}

// SubtitleStage transcribes the narration audio into timed segments. The
// transcription is authoritative for subtitle timing because it measures the
// rendered audio rather than the script that produced it.
type SubtitleStage struct {
	cfg         *config.Config
	transcriber Transcriber
	logger      *slog.Logger
}

// NewSubtitleStage builds the transcription stage handler.
func NewSubtitleStage(cfg *config.Config, logger *slog.Logger) *SubtitleStage {
	return &SubtitleStage{
		cfg:         cfg,
		transcriber: whisper.NewService(cfg),
		logger:      logging.NewComponentLogger(logger, "subtitle-stage"),
	}
}

// WithTranscriber swaps the transcription backend (for testing).
func (s *SubtitleStage) WithTranscriber(transcriber Transcriber) {
	s.transcriber = transcriber
}

func (s *SubtitleStage) Prepare(ctx context.Context, story *store.Story) error {
	if err := fileutil.EnsureDir(s.cfg.StoryDir(story.ID)); err != nil {
		return services.Wrap(services.ErrTransient, "subtitle", "prepare", "create story staging dir", err)
	}
	return nil
}

func (s *SubtitleStage) Execute(ctx context.Context, story *store.Story) error {
	if _, err := stage.ReadArtifact("load narration audio", story.AudioPath); err != nil {
		return err
	}

	dir := s.cfg.StoryDir(story.ID)
	transcript, _, err := s.transcriber.Transcribe(ctx, story.AudioPath, dir)
	if err != nil {
		return err
	}

	data, err := json.Marshal(transcript)
	if err != nil {
		return services.Wrap(services.ErrTransient, "subtitle", "encode transcript", "encode transcript artifact", err)
	}
	path := filepath.Join(dir, "timestamps.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "subtitle", "write transcript", "write transcript artifact", err)
	}
	story.TimestampsPath = path

	logging.WithContext(ctx, s.logger).Info("narration transcribed",
		logging.Int("segments", len(transcript.Segments)),
		logging.String("timestamps_path", path))
	return nil
}

func (s *SubtitleStage) HealthCheck(ctx context.Context) stage.Health {
	if err := s.transcriber.Available(); err != nil {
		return stage.Unhealthy("subtitle", err.Error())
	}
	return stage.Healthy("subtitle")
}
