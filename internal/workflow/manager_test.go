package workflow_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"storyreel/internal/config"
	"storyreel/internal/logging"
	"storyreel/internal/render"
	"storyreel/internal/services/ffmpeg"
	"storyreel/internal/stage"
	"storyreel/internal/stories"
	"storyreel/internal/store"
	"storyreel/internal/subtitles"
	"storyreel/internal/testsupport"
	"storyreel/internal/workflow"
)

func fakePipeline(cfg *config.Config) []stories.PipelineStage {
	writeFile := func(path, content string) error {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		return os.WriteFile(path, []byte(content), 0o644)
	}
	transcriptJSON := func() string {
		data, _ := json.Marshal(subtitles.Transcript{
			Text: "A short narrated story.",
			Segments: []subtitles.Segment{
				{Start: 0, End: 3.5, Text: "A short narrated story."},
			},
		})
		return string(data)
	}

	return []stories.PipelineStage{
		{
			Name: "script",
			Tag:  store.StageScript,
			From: store.StatusCrawled,
			Done: store.StatusScripted,
			Handler: executeFunc("script", func(story *store.Story) error {
				story.ScriptPath = filepath.Join(cfg.StoryDir(story.ID), "script.txt")
				return writeFile(story.ScriptPath, "narration text")
			}),
			Artifact: func(s *store.Story) string { return s.ScriptPath },
		},
		{
			Name: "tts",
			Tag:  store.StageTTS,
			From: store.StatusScripted,
			Done: store.StatusVoiced,
			Handler: executeFunc("tts", func(story *store.Story) error {
				story.AudioPath = filepath.Join(cfg.StoryDir(story.ID), "audio.mp3")
				return writeFile(story.AudioPath, "audio bytes")
			}),
			Artifact: func(s *store.Story) string { return s.AudioPath },
		},
		{
			Name: "subtitle",
			Tag:  store.StageSubtitle,
			From: store.StatusVoiced,
			Done: store.StatusSubtitled,
			Handler: executeFunc("subtitle", func(story *store.Story) error {
				story.TimestampsPath = filepath.Join(cfg.StoryDir(story.ID), "timestamps.json")
				return writeFile(story.TimestampsPath, transcriptJSON())
			}),
			Artifact: func(s *store.Story) string { return s.TimestampsPath },
		},
		{
			Name:     "validation",
			Tag:      store.StageValidation,
			From:     store.StatusSubtitled,
			Done:     store.StatusReady,
			Handler:  executeFunc("validation", func(*store.Story) error { return nil }),
			Artifact: func(*store.Story) string { return "" },
		},
	}
}

// executeFunc adapts a function to the stage handler contract.
type funcHandler struct {
	name string
	fn   func(*store.Story) error
}

func executeFunc(name string, fn func(*store.Story) error) stage.Handler {
	return &funcHandler{name: name, fn: fn}
}

func (h *funcHandler) Prepare(ctx context.Context, story *store.Story) error { return nil }

func (h *funcHandler) Execute(ctx context.Context, story *store.Story) error {
	return h.fn(story)
}

func (h *funcHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy(h.name)
}

// fakeEngine stands in for the ffmpeg toolchain.
type fakeEngine struct{}

func (fakeEngine) Probe(ctx context.Context, path string) (ffmpeg.MediaInfo, error) {
	return ffmpeg.MediaInfo{DurationSeconds: 3.5}, nil
}

func (fakeEngine) MixAudio(ctx context.Context, mix ffmpeg.AudioMix) error {
	return os.WriteFile(mix.OutputPath, []byte("mixed"), 0o644)
}

func (fakeEngine) PrepareVideo(ctx context.Context, prep ffmpeg.VideoPrep) error {
	return os.WriteFile(prep.OutputPath, []byte("background"), 0o644)
}

func (fakeEngine) Compose(ctx context.Context, comp ffmpeg.Composition) error {
	return os.WriteFile(comp.OutputPath, []byte("final video"), 0o644)
}

func (fakeEngine) Available() error { return nil }

func newTestManager(t *testing.T, cfg *config.Config, st *store.Store) *workflow.Manager {
	t.Helper()
	logger := logging.NewNop()
	processor := stories.NewProcessor(cfg, st, logger, fakePipeline(cfg)...)
	renderer := render.NewRenderer(cfg, st, logger)
	renderer.WithEngine(fakeEngine{})
	return workflow.NewManagerWithPipelines(cfg, st, logger, processor, renderer)
}

func seedAssets(t *testing.T, assetsDir string) {
	t.Helper()
	testsupport.WriteFile(t, filepath.Join(assetsDir, "video", "gameplay.mp4"), 256)
	testsupport.WriteFile(t, filepath.Join(assetsDir, "music", "calm.mp3"), 256)
}

func TestRunOnceDrivesStoryToRendered(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	seedAssets(t, cfg.Paths.AssetsDir)
	manager := newTestManager(t, cfg, st)
	ctx := context.Background()

	testsupport.NewStory(t, st, "s1")

	// First cycle takes the story from crawled through ready and renders it.
	result, err := manager.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if result.Stories.Ready != 1 {
		t.Fatalf("stories ready = %d, want 1", result.Stories.Ready)
	}
	if result.Renders.Rendered != 1 {
		t.Fatalf("videos rendered = %d, want 1", result.Renders.Rendered)
	}

	story, err := st.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if story.Status != store.StatusRendered {
		t.Fatalf("status = %s, want rendered", story.Status)
	}
	for _, path := range []string{story.ScriptPath, story.AudioPath, story.TimestampsPath, story.VideoPath} {
		if info, err := os.Stat(path); err != nil || info.Size() == 0 {
			t.Errorf("artifact %s missing or empty (%v)", path, err)
		}
	}

	// A second cycle has nothing left to do.
	result, err = manager.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if result.Stories.Ready != 0 || result.Renders.Rendered != 0 {
		t.Fatalf("idle cycle produced work: %+v", result)
	}
}

func TestStartRejectsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	first := newTestManager(t, cfg, st)
	second := newTestManager(t, cfg, st)
	ctx := context.Background()

	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second instance acquired the lock")
	}
}

func TestStopReleasesLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	manager := newTestManager(t, cfg, st)
	ctx := context.Background()

	if err := manager.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	manager.Stop()
	// Stop is idempotent.
	manager.Stop()

	replacement := newTestManager(t, cfg, st)
	if err := replacement.Start(ctx); err != nil {
		t.Fatalf("restart after stop: %v", err)
	}
	replacement.Stop()
}

func TestBackgroundLoopProcessesNewStories(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.PollIntervalSeconds = 1
	st := testsupport.MustOpenStore(t, cfg)
	seedAssets(t, cfg.Paths.AssetsDir)
	manager := newTestManager(t, cfg, st)
	ctx := context.Background()

	testsupport.NewStory(t, st, "s1")

	if err := manager.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		story, err := st.GetByID(ctx, "s1")
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if story.Status == store.StatusRendered {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("story never reached rendered")
}

func TestStatusReportsStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	manager := newTestManager(t, cfg, st)
	ctx := context.Background()

	testsupport.NewStory(t, st, "s1")
	testsupport.NewStory(t, st, "s2")

	summary := manager.Status(ctx)
	if summary.Running {
		t.Error("manager reported running before Start")
	}
	if summary.StoryStats[store.StatusCrawled] != 2 {
		t.Errorf("crawled count = %d, want 2", summary.StoryStats[store.StatusCrawled])
	}
	if len(summary.Health) != 5 {
		t.Fatalf("health checks = %d, want 4 stages + renderer", len(summary.Health))
	}
	for _, h := range summary.Health {
		if !h.Ready {
			t.Errorf("component %s unhealthy: %s", h.Name, h.Detail)
		}
	}
}
