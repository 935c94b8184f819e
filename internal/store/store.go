package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"storyreel/internal/config"
)

// Store manages story persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the story database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "stories.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Create inserts a new story with status crawled. The id must be unique;
// inserting an existing id fails with ErrDuplicate and leaves the original
// record unchanged.
func (s *Store) Create(ctx context.Context, story *Story) error {
	if story == nil {
		return errors.New("story is nil")
	}
	if strings.TrimSpace(story.ID) == "" {
		return errors.New("story id is required")
	}
	now := time.Now().UTC()
	if story.CreatedAt.IsZero() {
		story.CreatedAt = now
	}
	story.UpdatedAt = now
	story.Status = StatusCrawled

	err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO stories (
            id, title, author, subreddit, url, body, status,
            retry_count, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		story.ID,
		story.Title,
		nullableString(story.Author),
		story.Subreddit,
		nullableString(story.URL),
		story.Body,
		StatusCrawled,
		story.CreatedAt.Format(time.RFC3339Nano),
		story.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, story.ID)
		}
		return fmt.Errorf("insert story: %w", err)
	}
	return nil
}

// GetByID fetches a story by identifier, failing with ErrNotFound when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Story, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+storyColumns+` FROM stories WHERE id = ?`, id)
	story, err := scanStory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get story: %w", err)
	}
	return story, nil
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Status    Status
	Subreddit string
}

// List returns a lazy sequence of stories ordered by creation time ascending.
// The sequence is restartable: each range re-runs the query, so it always
// reflects the current database state.
func (s *Store) List(ctx context.Context, filter ListFilter) iter.Seq2[*Story, error] {
	return func(yield func(*Story, error) bool) {
		query := `SELECT ` + storyColumns + ` FROM stories`
		var (
			clauses []string
			args    []any
		)
		if filter.Status != "" {
			clauses = append(clauses, "status = ?")
			args = append(args, filter.Status)
		}
		if filter.Subreddit != "" {
			clauses = append(clauses, "subreddit = ?")
			args = append(args, filter.Subreddit)
		}
		if len(clauses) > 0 {
			query += " WHERE " + strings.Join(clauses, " AND ")
		}
		query += " ORDER BY created_at, id"

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(nil, fmt.Errorf("list stories: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			story, err := scanStory(rows)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(story, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Stories collects a filtered List into a slice.
func (s *Store) Stories(ctx context.Context, filter ListFilter) ([]*Story, error) {
	var stories []*Story
	for story, err := range s.List(ctx, filter) {
		if err != nil {
			return nil, err
		}
		stories = append(stories, story)
	}
	return stories, nil
}

// StoriesByStatus collects stories matching any of the provided statuses,
// ordered by creation time ascending.
func (s *Store) StoriesByStatus(ctx context.Context, statuses ...Status) ([]*Story, error) {
	if len(statuses) == 0 {
		return s.Stories(ctx, ListFilter{})
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		placeholders[i] = "?"
		args[i] = status
	}
	query := `SELECT ` + storyColumns + ` FROM stories WHERE status IN (` +
		strings.Join(placeholders, ",") + `) ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	defer rows.Close()

	var stories []*Story
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		stories = append(stories, story)
	}
	return stories, rows.Err()
}

// NextForStatuses returns the oldest story matching any of the provided statuses.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Story, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		placeholders[i] = "?"
		args[i] = status
	}
	query := `SELECT ` + storyColumns + ` FROM stories WHERE status IN (` +
		strings.Join(placeholders, ",") + `) ORDER BY created_at, id LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	story, err := scanStory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return story, nil
}

// Delete removes a story record. Artifact files are the caller's
// responsibility; the store only owns the row.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM stories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete story: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Stats returns a count of stories grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM stories GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("story stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

const storyColumns = "id, title, author, subreddit, url, body, status, script_path, audio_path, timestamps_path, video_path, error_stage, error_message, retry_count, created_at, updated_at"

func scanStory(scanner interface{ Scan(dest ...any) error }) (*Story, error) {
	var (
		id         string
		title      string
		author     sql.NullString
		subreddit  string
		url        sql.NullString
		body       string
		statusStr  string
		scriptPath sql.NullString
		audioPath  sql.NullString
		tsPath     sql.NullString
		videoPath  sql.NullString
		errStage   sql.NullString
		errMessage sql.NullString
		retryCount int
		createdRaw string
		updatedRaw string
	)

	if err := scanner.Scan(
		&id,
		&title,
		&author,
		&subreddit,
		&url,
		&body,
		&statusStr,
		&scriptPath,
		&audioPath,
		&tsPath,
		&videoPath,
		&errStage,
		&errMessage,
		&retryCount,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	story := &Story{
		ID:             id,
		Title:          title,
		Author:         author.String,
		Subreddit:      subreddit,
		URL:            url.String,
		Body:           body,
		Status:         Status(statusStr),
		ScriptPath:     scriptPath.String,
		AudioPath:      audioPath.String,
		TimestampsPath: tsPath.String,
		VideoPath:      videoPath.String,
		ErrorStage:     Stage(errStage.String),
		ErrorMessage:   errMessage.String,
		RetryCount:     retryCount,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		story.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		story.UpdatedAt = updated
	}
	return story, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == 5 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) execWithoutResultRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}
