package stories

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"storyreel/internal/config"
	"storyreel/internal/logging"
	"storyreel/internal/services"
	"storyreel/internal/stage"
	"storyreel/internal/store"
)

// PipelineStage binds a stage handler to its place in the story lifecycle.
type PipelineStage struct {
	Name     string
	Tag      store.Stage
	From     store.Status
	Done     store.Status
	Handler  stage.Handler
	Artifact func(*store.Story) string
}

// DefaultStages returns the story pipeline stages in execution order.
func DefaultStages(cfg *config.Config, logger *slog.Logger) []PipelineStage {
	return []PipelineStage{
		{
			Name:     "script",
			Tag:      store.StageScript,
			From:     store.StatusCrawled,
			Done:     store.StatusScripted,
			Handler:  NewScriptStage(cfg, logger),
			Artifact: func(s *store.Story) string { return s.ScriptPath },
		},
		{
			Name:     "tts",
			Tag:      store.StageTTS,
			From:     store.StatusScripted,
			Done:     store.StatusVoiced,
			Handler:  NewVoiceStage(cfg, logger),
			Artifact: func(s *store.Story) string { return s.AudioPath },
		},
		{
			Name:     "subtitle",
			Tag:      store.StageSubtitle,
			From:     store.StatusVoiced,
			Done:     store.StatusSubtitled,
			Handler:  NewSubtitleStage(cfg, logger),
			Artifact: func(s *store.Story) string { return s.TimestampsPath },
		},
		{
			Name:     "validation",
			Tag:      store.StageValidation,
			From:     store.StatusSubtitled,
			Done:     store.StatusReady,
			Handler:  NewValidateStage(cfg, logger),
			Artifact: func(*store.Story) string { return "" },
		},
	}
}

// Processor advances stories through the pipeline, recording failures and
// enforcing the retry budget.
type Processor struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger
	stages []PipelineStage
}

// NewProcessor builds a processor with the default stages. Tests may pass
// replacement stages.
func NewProcessor(cfg *config.Config, st *store.Store, logger *slog.Logger, stages ...PipelineStage) *Processor {
	if len(stages) == 0 {
		stages = DefaultStages(cfg, logger)
	}
	return &Processor{
		cfg:    cfg,
		store:  st,
		logger: logging.NewComponentLogger(logger, "processor"),
		stages: stages,
	}
}

func (p *Processor) stageFor(status store.Status) (PipelineStage, bool) {
	for _, s := range p.stages {
		if s.From == status {
			return s, true
		}
	}
	return PipelineStage{}, false
}

// Process runs a story forward until it is ready, parked in an error state,
// or out of pipeline stages. Stage failures are recorded on the story and do
// not surface as errors; only store-level problems do.
func (p *Processor) Process(ctx context.Context, id string) (*store.Story, error) {
	story, err := p.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	for {
		pipelineStage, ok := p.stageFor(story.Status)
		if !ok {
			return story, nil
		}

		stageCtx := services.WithStoryID(ctx, story.ID)
		stageCtx = services.WithStage(stageCtx, pipelineStage.Name)
		stageLogger := logging.WithContext(stageCtx, p.logger)

		stageStart := time.Now()
		stageLogger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

		if err := pipelineStage.Handler.Prepare(stageCtx, story); err != nil {
			return p.recordFailure(ctx, story, pipelineStage, err)
		}
		if err := pipelineStage.Handler.Execute(stageCtx, story); err != nil {
			return p.recordFailure(ctx, story, pipelineStage, err)
		}

		updated, err := p.store.UpdateStatus(ctx, story.ID, pipelineStage.Done, store.Update{
			Artifact: pipelineStage.Artifact(story),
		})
		if err != nil {
			return nil, fmt.Errorf("persist %s result: %w", pipelineStage.Name, err)
		}
		story = updated

		stageLogger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.String("next_status", string(story.Status)),
			logging.Duration("stage_duration", time.Since(stageStart)))
	}
}

// ProcessBatch runs every story currently inside the pipeline. A stage
// failure parks that story and the batch continues; store-level errors abort.
func (p *Processor) ProcessBatch(ctx context.Context) (BatchResult, error) {
	var result BatchResult

	pending, err := p.store.StoriesByStatus(ctx,
		store.StatusCrawled, store.StatusScripted, store.StatusVoiced, store.StatusSubtitled)
	if err != nil {
		return result, err
	}

	for _, story := range pending {
		processed, err := p.Process(ctx, story.ID)
		if err != nil {
			return result, err
		}
		switch processed.Status {
		case store.StatusReady:
			result.Ready++
		case store.StatusError:
			result.Failed++
		case store.StatusPermanentlyFailed:
			result.PermanentlyFailed++
		default:
			result.Other++
		}
	}
	return result, nil
}

// BatchResult summarizes a ProcessBatch pass.
type BatchResult struct {
	Ready             int
	Failed            int
	PermanentlyFailed int
	Other             int
}

// Retry rewinds a failed story to the status its recorded stage resumes at.
// Permanently failed stories require force, which resets them to crawled.
func (p *Processor) Retry(ctx context.Context, id string, force bool) (*store.Story, error) {
	story, err := p.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch story.Status {
	case store.StatusError:
		return p.store.UpdateStatus(ctx, id, story.ErrorStage.ResumeStatus(), store.Update{})
	case store.StatusPermanentlyFailed:
		if !force {
			return nil, fmt.Errorf("story %s is permanently failed; use force to reset it", id)
		}
		return p.store.UpdateStatus(ctx, id, store.StatusCrawled, store.Update{})
	default:
		return nil, fmt.Errorf("story %s is %s; only failed stories can be retried", id, story.Status)
	}
}

// recordFailure parks the story in the error state with the stage tag so a
// retry re-enters at the failed stage. Retryable failures consume the retry
// budget and escalate to permanently failed once it is spent; non-retryable
// ones stay parked for the operator without touching the budget.
func (p *Processor) recordFailure(ctx context.Context, story *store.Story, pipelineStage PipelineStage, stageErr error) (*store.Story, error) {
	message := services.Message(stageErr)
	retryable := services.IsRetryable(stageErr)

	logger := p.logger.With(
		logging.String(logging.FieldStoryID, story.ID),
		logging.String(logging.FieldStage, pipelineStage.Name))
	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.Bool("retryable", retryable),
		logging.Error(stageErr))

	updated, err := p.store.UpdateStatus(ctx, story.ID, store.StatusError, store.Update{
		Stage:          pipelineStage.Tag,
		ErrorMessage:   message,
		IncrementRetry: retryable,
	})
	if err != nil {
		return nil, fmt.Errorf("record %s failure: %w", pipelineStage.Name, err)
	}

	if retryable && updated.RetryCount >= p.cfg.Pipeline.MaxRetries {
		return p.markPermanentlyFailed(ctx, updated,
			fmt.Sprintf("retry budget exhausted after %d attempts: %s", updated.RetryCount, message), logger)
	}
	return updated, nil
}

func (p *Processor) markPermanentlyFailed(ctx context.Context, story *store.Story, message string, logger *slog.Logger) (*store.Story, error) {
	updated, err := p.store.UpdateStatus(ctx, story.ID, store.StatusPermanentlyFailed, store.Update{
		ErrorMessage: message,
	})
	if err != nil {
		return nil, fmt.Errorf("mark story permanently failed: %w", err)
	}
	logger.Error("story permanently failed", logging.String("error_message", message))
	return updated, nil
}

// HealthChecks runs every stage handler's readiness probe.
func (p *Processor) HealthChecks(ctx context.Context) []stage.Health {
	checks := make([]stage.Health, 0, len(p.stages))
	for _, s := range p.stages {
		checks = append(checks, s.Handler.HealthCheck(ctx))
	}
	return checks
}
