package stories

import (
	"context"
	"fmt"
	"log/slog"

	"storyreel/internal/config"
	"storyreel/internal/fileutil"
	"storyreel/internal/logging"
	"storyreel/internal/services"
	"storyreel/internal/stage"
	"storyreel/internal/store"
	"storyreel/internal/subtitles"
)

// ValidateStage confirms a subtitled story's artifacts are present and
// well-formed before the story is declared ready for rendering. The checks
// are purely local; media inspection belongs to the renderer.
type ValidateStage struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewValidateStage builds the readiness validation stage handler.
func NewValidateStage(cfg *config.Config, logger *slog.Logger) *ValidateStage {
	return &ValidateStage{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "validate-stage"),
	}
}

func (v *ValidateStage) Prepare(ctx context.Context, story *store.Story) error {
	return nil
}

func (v *ValidateStage) Execute(ctx context.Context, story *store.Story) error {
	for _, artifact := range []struct {
		label string
		path  string
	}{
		{"script", story.ScriptPath},
		{"narration audio", story.AudioPath},
		{"transcript", story.TimestampsPath},
	} {
		if !fileutil.FileNonEmpty(artifact.path) {
			return services.Wrap(services.ErrInvalidInput, "validation", "check artifacts",
				fmt.Sprintf("%s artifact %s is missing or empty", artifact.label, artifact.path), nil)
		}
	}

	data, err := stage.ReadArtifact("load transcript", story.TimestampsPath)
	if err != nil {
		return err
	}
	transcript, err := subtitles.ParseTranscript(data)
	if err != nil {
		return services.Wrap(services.ErrInvalidInput, "validation", "parse transcript", "transcript artifact is malformed", err)
	}
	if len(transcript.Segments) == 0 {
		return services.Wrap(services.ErrInvalidInput, "validation", "parse transcript", "transcript contains no segments", nil)
	}

	logging.WithContext(ctx, v.logger).Info("story validated",
		logging.Int("segments", len(transcript.Segments)))
	return nil
}

func (v *ValidateStage) HealthCheck(ctx context.Context) stage.Health {
	if err := fileutil.EnsureDir(v.cfg.Paths.StagingDir); err != nil {
		return stage.Unhealthy("validation", fmt.Sprintf("staging dir unavailable: %v", err))
	}
	return stage.Healthy("validation")
}
