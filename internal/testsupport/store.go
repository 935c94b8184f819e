package testsupport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"storyreel/internal/config"
	"storyreel/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewStory creates a crawled story for tests using the provided store.
func NewStory(t testing.TB, st *store.Store, id string) *store.Story {
	t.Helper()

	story := &store.Story{
		ID:        id,
		Title:     fmt.Sprintf("Test Story %s", id),
		Author:    "tester",
		Subreddit: "tifu",
		URL:       fmt.Sprintf("https://reddit.example/r/tifu/%s", id),
		Body: "Today I fumbled a perfectly good test fixture and learned a hard lesson about cleanup ordering. " +
			"The database vanished halfway through the run and took my weekend plans with it.",
		CreatedAt: time.Now().UTC(),
	}
	if err := st.Create(context.Background(), story); err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return story
}

// AdvanceStory walks a story forward to the target status, writing placeholder
// artifact files along the way.
func AdvanceStory(t testing.TB, st *store.Store, cfg *config.Config, id string, target store.Status) *store.Story {
	t.Helper()

	ctx := context.Background()
	story, err := st.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	steps := []struct {
		status   store.Status
		artifact string
	}{
		{store.StatusScripted, "script.txt"},
		{store.StatusVoiced, "audio.mp3"},
		{store.StatusSubtitled, "timestamps.json"},
		{store.StatusReady, ""},
		{store.StatusProcessing, ""},
		{store.StatusRendered, id + ".mp4"},
	}
	for _, step := range steps {
		if statusReached(story.Status, target) {
			break
		}
		if statusReached(story.Status, step.status) {
			continue
		}
		upd := store.Update{}
		if step.artifact != "" {
			path := artifactPath(cfg, id, step.artifact)
			WriteFile(t, path, 64)
			upd.Artifact = path
		}
		story, err = st.UpdateStatus(ctx, id, step.status, upd)
		if err != nil {
			t.Fatalf("UpdateStatus(%s): %v", step.status, err)
		}
		if story.Status == target {
			break
		}
	}
	return story
}

func artifactPath(cfg *config.Config, id, name string) string {
	if name == id+".mp4" {
		return cfg.Paths.OutputDir + "/" + name
	}
	return cfg.StoryDir(id) + "/" + name
}

func statusReached(current, target store.Status) bool {
	order := []store.Status{
		store.StatusCrawled, store.StatusScripted, store.StatusVoiced,
		store.StatusSubtitled, store.StatusReady, store.StatusProcessing, store.StatusRendered,
	}
	pos := func(s store.Status) int {
		for i, v := range order {
			if v == s {
				return i
			}
		}
		return -1
	}
	return pos(current) >= pos(target)
}
