package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"storyreel/internal/config"
	"storyreel/internal/fileutil"
	"storyreel/internal/logging"
	"storyreel/internal/services"
	"storyreel/internal/services/ffmpeg"
	"storyreel/internal/stage"
	"storyreel/internal/store"
	"storyreel/internal/subtitles"
)

// transcriptSlackSeconds tolerates transcription overshoot past the measured
// narration duration before the render inputs are declared inconsistent.
const transcriptSlackSeconds = 2.0

// Engine is the media toolchain surface the renderer drives. The ffmpeg
// service implements it; tests substitute fakes.
type Engine interface {
	Probe(ctx context.Context, path string) (ffmpeg.MediaInfo, error)
	MixAudio(ctx context.Context, mix ffmpeg.AudioMix) error
	PrepareVideo(ctx context.Context, prep ffmpeg.VideoPrep) error
	Compose(ctx context.Context, comp ffmpeg.Composition) error
	Available() error
}

// Renderer runs ready stories through the video pipeline.
type Renderer struct {
	cfg    *config.Config
	store  *store.Store
	engine Engine
	logger *slog.Logger
}

// NewRenderer builds a renderer backed by the ffmpeg toolchain.
func NewRenderer(cfg *config.Config, st *store.Store, logger *slog.Logger) *Renderer {
	return &Renderer{
		cfg:    cfg,
		store:  st,
		engine: ffmpeg.NewService(cfg),
		logger: logging.NewComponentLogger(logger, "renderer"),
	}
}

// WithEngine swaps the media toolchain (for testing).
func (r *Renderer) WithEngine(engine Engine) {
	r.engine = engine
}

// HealthCheck reports whether the media toolchain is usable.
func (r *Renderer) HealthCheck(ctx context.Context) stage.Health {
	if err := r.engine.Available(); err != nil {
		return stage.Unhealthy("render", err.Error())
	}
	return stage.Healthy("render")
}

// Render takes one ready story through the five render steps. Render
// failures are recorded on the story, not returned; only store-level
// problems surface as errors.
func (r *Renderer) Render(ctx context.Context, id string) (*store.Story, error) {
	story, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if story.Status != store.StatusReady {
		return nil, fmt.Errorf("story %s is %s; only ready stories can be rendered", id, story.Status)
	}

	story, err = r.store.UpdateStatus(ctx, id, store.StatusProcessing, store.Update{})
	if err != nil {
		return nil, fmt.Errorf("claim story for rendering: %w", err)
	}

	renderCtx := services.WithStoryID(ctx, id)
	renderCtx = services.WithStage(renderCtx, "render")
	logger := logging.WithContext(renderCtx, r.logger)

	start := time.Now()
	logger.Info("render started", logging.String(logging.FieldEventType, "stage_start"))

	outputPath, renderErr := r.renderStory(renderCtx, story, logger)
	if renderErr != nil {
		r.cleanupWorkFiles(story.ID)
		// Persist the failure even when the render was cancelled.
		return r.recordFailure(context.WithoutCancel(ctx), ctx, story, renderErr, logger)
	}
	r.cleanupWorkFiles(story.ID)

	updated, err := r.store.UpdateStatus(ctx, id, store.StatusRendered, store.Update{Artifact: outputPath})
	if err != nil {
		return nil, fmt.Errorf("persist render result: %w", err)
	}
	logger.Info("render completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("video_path", outputPath),
		logging.Duration("stage_duration", time.Since(start)))
	return updated, nil
}

// RenderBatch renders every ready story. Render failures park the affected
// story and the batch continues.
func (r *Renderer) RenderBatch(ctx context.Context) (BatchResult, error) {
	var result BatchResult

	ready, err := r.store.StoriesByStatus(ctx, store.StatusReady)
	if err != nil {
		return result, err
	}
	for _, story := range ready {
		rendered, err := r.Render(ctx, story.ID)
		if err != nil {
			return result, err
		}
		switch rendered.Status {
		case store.StatusRendered:
			result.Rendered++
		case store.StatusError:
			result.Failed++
		case store.StatusPermanentlyFailed:
			result.PermanentlyFailed++
		}
		if ctx.Err() != nil {
			return result, nil
		}
	}
	return result, nil
}

// BatchResult summarizes a RenderBatch pass.
type BatchResult struct {
	Rendered          int
	Failed            int
	PermanentlyFailed int
}

func (r *Renderer) renderStory(ctx context.Context, story *store.Story, logger *slog.Logger) (string, error) {
	dir := r.cfg.StoryDir(story.ID)

	// Step 1: validate inputs and measure the narration.
	transcriptData, err := stage.ReadArtifact("load transcript", story.TimestampsPath)
	if err != nil {
		return "", err
	}
	transcript, err := subtitles.ParseTranscript(transcriptData)
	if err != nil {
		return "", services.Wrap(services.ErrInvalidInput, "render", "validate inputs", "transcript artifact is malformed", err)
	}
	if len(transcript.Segments) == 0 {
		return "", services.Wrap(services.ErrInvalidInput, "render", "validate inputs", "transcript contains no segments", nil)
	}
	if !fileutil.FileNonEmpty(story.AudioPath) {
		return "", services.Wrap(services.ErrInvalidInput, "render", "validate inputs",
			fmt.Sprintf("narration audio %s is missing or empty", story.AudioPath), nil)
	}
	narration, err := r.engine.Probe(ctx, story.AudioPath)
	if err != nil {
		return "", err
	}
	if last := transcript.Segments[len(transcript.Segments)-1].End; last > narration.DurationSeconds+transcriptSlackSeconds {
		return "", services.Wrap(services.ErrInvalidInput, "render", "validate inputs",
			fmt.Sprintf("transcript runs %.1fs past the %.1fs audio track", last-narration.DurationSeconds, narration.DurationSeconds), nil)
	}

	assets, err := SelectAssets(r.cfg.Paths.AssetsDir, story.ID)
	if err != nil {
		return "", err
	}
	logger.Debug("assets selected",
		logging.String("background", assets.VideoPath),
		logging.String("music", assets.MusicPath),
		logging.Float64("narration_seconds", narration.DurationSeconds))

	// Step 2: mix narration over looped music, trimmed to the narration.
	mixedPath := filepath.Join(dir, "mixed.m4a")
	if err := r.engine.MixAudio(ctx, ffmpeg.AudioMix{
		NarrationPath:   story.AudioPath,
		MusicPath:       assets.MusicPath,
		OutputPath:      mixedPath,
		NarrationLUFS:   r.cfg.Video.NarrationLUFS,
		MusicGainDB:     r.cfg.Video.MusicGainDB,
		DurationSeconds: narration.DurationSeconds,
		FadeSeconds:     r.cfg.Video.FadeSeconds,
	}); err != nil {
		return "", err
	}

	// Step 3: loop or trim the footage onto the vertical frame.
	preparedPath := filepath.Join(dir, "background.mp4")
	if err := r.engine.PrepareVideo(ctx, ffmpeg.VideoPrep{
		SourcePath:      assets.VideoPath,
		OutputPath:      preparedPath,
		Width:           r.cfg.Video.Width,
		Height:          r.cfg.Video.Height,
		FrameRate:       r.cfg.Video.FrameRate,
		DurationSeconds: narration.DurationSeconds,
	}); err != nil {
		return "", err
	}

	// Step 4: chunk the transcript and write the subtitle script.
	chunks := subtitles.Chunk(transcript.Segments, subtitles.Budget{
		MaxChars:   r.cfg.Subtitles.MaxChunkChars,
		MaxSeconds: r.cfg.Subtitles.MaxChunkSeconds,
	})
	subtitlePath := filepath.Join(dir, "subtitles.ass")
	if err := subtitles.WriteASS(subtitlePath, chunks, subtitles.Style{
		FontName:    r.cfg.Subtitles.FontName,
		FontSize:    r.cfg.Subtitles.FontSize,
		PlayResX:    r.cfg.Video.Width,
		PlayResY:    r.cfg.Video.Height,
		FadeSeconds: r.cfg.Subtitles.FadeSeconds,
	}); err != nil {
		return "", services.Wrap(services.ErrTransient, "render", "write subtitles", "write subtitle script", err)
	}

	// Step 5: compose, then move the finished video into the output dir.
	stagedPath := filepath.Join(dir, "final.mp4")
	if err := r.engine.Compose(ctx, ffmpeg.Composition{
		VideoPath:     preparedPath,
		AudioPath:     mixedPath,
		SubtitlesPath: subtitlePath,
		OutputPath:    stagedPath,
	}); err != nil {
		return "", err
	}

	outputPath := filepath.Join(r.cfg.Paths.OutputDir, story.ID+".mp4")
	if err := fileutil.MoveFileVerified(stagedPath, outputPath); err != nil {
		return "", services.Wrap(services.ErrTransient, "render", "publish video", "move finished video to output dir", err)
	}
	return outputPath, nil
}

// cleanupWorkFiles removes intermediate render products from the story's
// staging dir. Pipeline artifacts (script, audio, transcript) are kept.
func (r *Renderer) cleanupWorkFiles(storyID string) {
	dir := r.cfg.StoryDir(storyID)
	for _, name := range []string{"mixed.m4a", "background.mp4", "subtitles.ass", "final.mp4"} {
		if err := fileutil.RemoveIfExists(filepath.Join(dir, name)); err != nil {
			r.logger.Warn("failed to remove render work file",
				logging.String(logging.FieldStoryID, storyID),
				logging.String("path", filepath.Join(dir, name)),
				logging.Error(err))
		}
	}
}

// recordFailure parks the story in the error state with the stage tag.
// Retryable failures consume the retry budget and escalate to permanently
// failed once it is spent; non-retryable ones stay parked for the operator.
func (r *Renderer) recordFailure(ctx, renderCtx context.Context, story *store.Story, renderErr error, logger *slog.Logger) (*store.Story, error) {
	tag := store.StageRender
	message := services.Message(renderErr)
	retryable := services.IsRetryable(renderErr)
	cancelled := errors.Is(renderErr, context.Canceled) || errors.Is(renderCtx.Err(), context.Canceled)
	if cancelled {
		tag = store.StageCancelled
		message = "render cancelled before completion"
	}

	logger.Error("render failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("error_stage", string(tag)),
		logging.Error(renderErr))

	updated, err := r.store.UpdateStatus(ctx, story.ID, store.StatusError, store.Update{
		Stage:          tag,
		ErrorMessage:   message,
		IncrementRetry: !cancelled && retryable,
	})
	if err != nil {
		return nil, fmt.Errorf("record render failure: %w", err)
	}
	if cancelled {
		return updated, nil
	}

	if retryable && updated.RetryCount >= r.cfg.Pipeline.MaxRetries {
		final, err := r.store.UpdateStatus(ctx, story.ID, store.StatusPermanentlyFailed, store.Update{
			ErrorMessage: fmt.Sprintf("render failed after %d attempts: %s", updated.RetryCount, message),
		})
		if err != nil {
			return nil, fmt.Errorf("mark story permanently failed: %w", err)
		}
		return final, nil
	}
	return updated, nil
}

// Retry rewinds a story that failed during rendering back to ready.
func (r *Renderer) Retry(ctx context.Context, id string) (*store.Story, error) {
	story, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if story.Status != store.StatusError {
		return nil, fmt.Errorf("story %s is %s; only failed stories can be retried", id, story.Status)
	}
	return r.store.UpdateStatus(ctx, id, story.ErrorStage.ResumeStatus(), store.Update{})
}
