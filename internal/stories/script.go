package stories

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"storyreel/internal/config"
	"storyreel/internal/fileutil"
	"storyreel/internal/logging"
	"storyreel/internal/services"
	"storyreel/internal/stage"
	"storyreel/internal/store"
	"storyreel/internal/textutil"
)

// minScriptChars rejects posts too short to carry a narrated video.
const minScriptChars = 120

// ScriptStage derives the narration script from a crawled story's title and
// body text.
type ScriptStage struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewScriptStage builds the script stage handler.
func NewScriptStage(cfg *config.Config, logger *slog.Logger) *ScriptStage {
	return &ScriptStage{cfg: cfg, logger: logging.NewComponentLogger(logger, "script-stage")}
}

func (s *ScriptStage) Prepare(ctx context.Context, story *store.Story) error {
	if err := fileutil.EnsureDir(s.cfg.StoryDir(story.ID)); err != nil {
		return services.Wrap(services.ErrTransient, "script", "prepare", "create story staging dir", err)
	}
	return nil
}

func (s *ScriptStage) Execute(ctx context.Context, story *store.Story) error {
	script := textutil.DeriveScript(story.Title, story.Body)
	if len(script) < minScriptChars {
		return services.Wrap(services.ErrInvalidInput, "script", "derive script",
			fmt.Sprintf("story text is %d characters; too short to narrate", len(script)), nil)
	}

	path := filepath.Join(s.cfg.StoryDir(story.ID), "script.txt")
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "script", "write script", "write script file", err)
	}
	story.ScriptPath = path

	logging.WithContext(ctx, s.logger).Info("script derived",
		logging.Int("script_chars", len(script)),
		logging.String("script_path", path))
	return nil
}

func (s *ScriptStage) HealthCheck(ctx context.Context) stage.Health {
	if err := fileutil.EnsureDir(s.cfg.Paths.StagingDir); err != nil {
		return stage.Unhealthy("script", fmt.Sprintf("staging dir unavailable: %v", err))
	}
	return stage.Healthy("script")
}
