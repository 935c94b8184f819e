package stories

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"storyreel/internal/config"
	"storyreel/internal/fileutil"
	"storyreel/internal/logging"
	"storyreel/internal/services"
	"storyreel/internal/services/elevenlabs"
	"storyreel/internal/stage"
	"storyreel/internal/store"
)

// Synthesizer converts narration text into audio plus character alignment.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, audioPath, timestampsPath string) error
}

// VoiceStage narrates the script through the TTS service. Alongside the audio
// artifact it saves the provider's character alignment, which the subtitle
// stage can fall back to when transcription is unavailable.
type VoiceStage struct {
	cfg    *config.Config
	tts    Synthesizer
	logger *slog.Logger
}

// NewVoiceStage builds the narration stage handler.
func NewVoiceStage(cfg *config.Config, logger *slog.Logger) *VoiceStage {
	return &VoiceStage{
		cfg:    cfg,
		tts:    elevenlabs.NewClient(cfg),
		logger: logging.NewComponentLogger(logger, "voice-stage"),
	}
}

// WithSynthesizer swaps the TTS backend (for testing).
func (v *VoiceStage) WithSynthesizer(tts Synthesizer) {
	v.tts = tts
}

func (v *VoiceStage) Prepare(ctx context.Context, story *store.Story) error {
	if err := fileutil.EnsureDir(v.cfg.StoryDir(story.ID)); err != nil {
		return services.Wrap(services.ErrTransient, "tts", "prepare", "create story staging dir", err)
	}
	return nil
}

func (v *VoiceStage) Execute(ctx context.Context, story *store.Story) error {
	script, err := stage.ReadArtifact("load script", story.ScriptPath)
	if err != nil {
		return err
	}

	dir := v.cfg.StoryDir(story.ID)
	audioPath := filepath.Join(dir, "audio.mp3")
	alignmentPath := filepath.Join(dir, "alignment.json")
	if err := v.tts.Synthesize(ctx, string(script), audioPath, alignmentPath); err != nil {
		return err
	}
	story.AudioPath = audioPath

	logging.WithContext(ctx, v.logger).Info("narration synthesized",
		logging.String("audio_path", audioPath),
		logging.String("alignment_path", alignmentPath))
	return nil
}

func (v *VoiceStage) HealthCheck(ctx context.Context) stage.Health {
	if strings.TrimSpace(v.cfg.TTS.APIKey) == "" {
		return stage.Unhealthy("tts", "api key is not configured")
	}
	return stage.Healthy("tts")
}
