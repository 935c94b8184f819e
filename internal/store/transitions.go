package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Update carries the optional fields accompanying a status change.
type Update struct {
	// Artifact is the path produced by the stage the new status implies.
	Artifact string
	// Stage tags the failing step when the new status is error.
	Stage Stage
	// ErrorMessage is persisted alongside an error status.
	ErrorMessage string
	// IncrementRetry bumps the retry counter, used for transient faults.
	IncrementRetry bool
}

// UpdateStatus atomically moves a story to a new status, recording artifacts
// and error details. Either the story reflects the new status and fields, or
// nothing changed. Transitions are monotonic forward; the only rewinds allowed
// are retry (error back to the stage's resume status) and operator force-reset
// to crawled. Violations fail with ErrInvalidTransition.
func (s *Store) UpdateStatus(ctx context.Context, id string, next Status, upd Update) (*Story, error) {
	if _, ok := statusSet[next]; !ok {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}

	var updated *Story
	err := retryOnBusy(ctx, func() error {
		var txErr error
		updated, txErr = s.updateStatusTx(ctx, id, next, upd)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) updateStatusTx(ctx context.Context, id string, next Status, upd Update) (*Story, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+storyColumns+` FROM stories WHERE id = ?`, id)
	story, err := scanStory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load story: %w", err)
	}

	if err := validateTransition(story, next, upd); err != nil {
		return nil, err
	}
	prev := story.Status
	applyTransition(story, next, upd)

	story.UpdatedAt = time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE stories
         SET status = ?, script_path = ?, audio_path = ?, timestamps_path = ?,
             video_path = ?, error_stage = ?, error_message = ?, retry_count = ?,
             updated_at = ?
         WHERE id = ? AND status = ?`,
		story.Status,
		nullableString(story.ScriptPath),
		nullableString(story.AudioPath),
		nullableString(story.TimestampsPath),
		nullableString(story.VideoPath),
		nullableString(string(story.ErrorStage)),
		nullableString(story.ErrorMessage),
		story.RetryCount,
		story.UpdatedAt.Format(time.RFC3339Nano),
		id,
		prev,
	)
	if err != nil {
		return nil, fmt.Errorf("update story: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if affected == 0 {
		return nil, invalidTransition(id, prev, next, "concurrent update")
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return story, nil
}

func validateTransition(story *Story, next Status, upd Update) error {
	cur := story.Status

	switch next {
	case StatusError:
		if cur == StatusRendered || cur == StatusPermanentlyFailed {
			return invalidTransition(story.ID, cur, next, "terminal status")
		}
		if _, ok := ParseStage(string(upd.Stage)); !ok {
			return invalidTransition(story.ID, cur, next, "error stage is required")
		}
		return nil
	case StatusPermanentlyFailed:
		if cur != StatusError {
			return invalidTransition(story.ID, cur, next, "only error stories can be marked permanently failed")
		}
		return nil
	}

	nextRank, ok := statusRank[next]
	if !ok {
		return invalidTransition(story.ID, cur, next, "unknown target")
	}

	switch cur {
	case StatusError:
		// Retry rewind: the target is fixed by the recorded error stage.
		// Force-reset to crawled is always permitted.
		if next == story.ErrorStage.ResumeStatus() || next == StatusCrawled {
			return nil
		}
		return invalidTransition(story.ID, cur, next,
			fmt.Sprintf("retry must resume at %s", story.ErrorStage.ResumeStatus()))
	case StatusPermanentlyFailed:
		if next == StatusCrawled {
			return nil
		}
		return invalidTransition(story.ID, cur, next, "only force-reset to crawled is allowed")
	}

	curRank, ok := statusRank[cur]
	if !ok {
		return invalidTransition(story.ID, cur, next, "unknown current status")
	}
	if nextRank != curRank+1 {
		return invalidTransition(story.ID, cur, next, "stages must advance one step at a time")
	}

	// The artifact invariant: a status that implies an artifact may only be
	// entered with that artifact recorded.
	if field := requiredArtifact(next); field != artifactNone {
		if upd.Artifact == "" && story.artifact(field) == "" {
			return invalidTransition(story.ID, cur, next, "artifact path is required")
		}
	}
	return nil
}

func applyTransition(story *Story, next Status, upd Update) {
	prev := story.Status
	story.Status = next

	switch next {
	case StatusError:
		story.ErrorStage = upd.Stage
		story.ErrorMessage = upd.ErrorMessage
		if upd.IncrementRetry {
			story.RetryCount++
		}
		clearArtifactsAbove(story, upd.Stage.ResumeStatus())
		return
	case StatusPermanentlyFailed:
		if upd.ErrorMessage != "" {
			story.ErrorMessage = upd.ErrorMessage
		}
		return
	}

	if field := requiredArtifact(next); field != artifactNone && upd.Artifact != "" {
		story.setArtifact(field, upd.Artifact)
	}
	clearArtifactsAbove(story, next)
	story.ErrorStage = ""
	story.ErrorMessage = ""
	if prev == StatusPermanentlyFailed && next == StatusCrawled {
		story.RetryCount = 0
	}
}

// clearArtifactsAbove empties artifact fields owned by statuses past the given
// one, keeping the artifact invariant intact across rewinds.
func clearArtifactsAbove(story *Story, status Status) {
	rank, ok := statusRank[status]
	if !ok {
		return
	}
	for owner, ownerRank := range statusRank {
		if ownerRank <= rank {
			continue
		}
		if field := requiredArtifact(owner); field != artifactNone {
			story.setArtifact(field, "")
		}
	}
}
