package render_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"storyreel/internal/config"
	"storyreel/internal/logging"
	"storyreel/internal/render"
	"storyreel/internal/services"
	"storyreel/internal/services/ffmpeg"
	"storyreel/internal/store"
	"storyreel/internal/subtitles"
	"storyreel/internal/testsupport"
)

// fakeEngine records the operations the renderer requests and writes
// plausible outputs so the publish step has something to move.
type fakeEngine struct {
	narrationSeconds float64
	mixes            []ffmpeg.AudioMix
	preps            []ffmpeg.VideoPrep
	compositions     []ffmpeg.Composition

	composeErr error
	onCompose  func()
}

func (f *fakeEngine) Probe(ctx context.Context, path string) (ffmpeg.MediaInfo, error) {
	return ffmpeg.MediaInfo{DurationSeconds: f.narrationSeconds}, nil
}

func (f *fakeEngine) MixAudio(ctx context.Context, mix ffmpeg.AudioMix) error {
	f.mixes = append(f.mixes, mix)
	return os.WriteFile(mix.OutputPath, []byte("audio"), 0o644)
}

func (f *fakeEngine) PrepareVideo(ctx context.Context, prep ffmpeg.VideoPrep) error {
	f.preps = append(f.preps, prep)
	return os.WriteFile(prep.OutputPath, []byte("video"), 0o644)
}

func (f *fakeEngine) Compose(ctx context.Context, comp ffmpeg.Composition) error {
	if f.composeErr != nil {
		return f.composeErr
	}
	if f.onCompose != nil {
		f.onCompose()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.compositions = append(f.compositions, comp)
	return os.WriteFile(comp.OutputPath, []byte("final video"), 0o644)
}

func (f *fakeEngine) Available() error { return nil }

func seedAssets(t *testing.T, assetsDir string) {
	t.Helper()
	testsupport.WriteFile(t, filepath.Join(assetsDir, "video", "gameplay.mp4"), 256)
	testsupport.WriteFile(t, filepath.Join(assetsDir, "video", "scenery.mp4"), 256)
	testsupport.WriteFile(t, filepath.Join(assetsDir, "music", "calm.mp3"), 256)
}

// readyStory advances a story to ready and replaces the placeholder
// transcript with a parseable one.
func readyStory(t *testing.T, st *store.Store, cfg *config.Config, id string) *store.Story {
	t.Helper()
	testsupport.NewStory(t, st, id)
	story := testsupport.AdvanceStory(t, st, cfg, id, store.StatusReady)
	writeTranscript(t, story.TimestampsPath)
	return story
}

func writeTranscript(t *testing.T, path string) {
	t.Helper()
	transcript := subtitles.Transcript{
		Text: "A long story told in one breath that needs chunking.",
		Segments: []subtitles.Segment{
			{Start: 0, End: 12, Text: "A long story told in one breath that definitely needs to be split into readable chunks"},
		},
	}
	data, err := json.Marshal(transcript)
	if err != nil {
		t.Fatalf("marshal transcript: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
}

func TestRenderProducesVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	seedAssets(t, cfg.Paths.AssetsDir)
	engine := &fakeEngine{narrationSeconds: 45}
	renderer := render.NewRenderer(cfg, st, logging.NewNop())
	renderer.WithEngine(engine)
	ctx := context.Background()

	readyStory(t, st, cfg, "s1")

	story, err := renderer.Render(ctx, "s1")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if story.Status != store.StatusRendered {
		t.Fatalf("status = %s, want rendered", story.Status)
	}

	wantVideo := filepath.Join(cfg.Paths.OutputDir, "s1.mp4")
	if story.VideoPath != wantVideo {
		t.Fatalf("video path = %q, want %q", story.VideoPath, wantVideo)
	}
	if data, err := os.ReadFile(wantVideo); err != nil || string(data) != "final video" {
		t.Fatalf("output video missing or wrong: %q, %v", data, err)
	}

	// Work files are cleaned out of staging after a successful render.
	for _, name := range []string{"mixed.m4a", "background.mp4", "subtitles.ass", "final.mp4"} {
		if _, err := os.Stat(filepath.Join(cfg.StoryDir("s1"), name)); !os.IsNotExist(err) {
			t.Errorf("work file %s left in staging", name)
		}
	}
}

func TestRenderLoopsShortFootageToNarrationLength(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	seedAssets(t, cfg.Paths.AssetsDir)
	// 45 seconds of narration: both the mixed track and the prepared
	// background are cut to the narration length, looping short footage.
	engine := &fakeEngine{narrationSeconds: 45}
	renderer := render.NewRenderer(cfg, st, logging.NewNop())
	renderer.WithEngine(engine)

	readyStory(t, st, cfg, "s1")
	if _, err := renderer.Render(context.Background(), "s1"); err != nil {
		t.Fatalf("Render: %v", err)
	}

	if len(engine.preps) != 1 || engine.preps[0].DurationSeconds != 45 {
		t.Fatalf("video prep = %#v, want 45s duration", engine.preps)
	}
	if len(engine.mixes) != 1 || engine.mixes[0].DurationSeconds != 45 {
		t.Fatalf("audio mix = %#v, want 45s duration", engine.mixes)
	}
	if engine.preps[0].Width != cfg.Video.Width || engine.preps[0].Height != cfg.Video.Height {
		t.Fatalf("prep frame = %dx%d", engine.preps[0].Width, engine.preps[0].Height)
	}
}

func TestRenderFailureParksStoryAndCleansUp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	seedAssets(t, cfg.Paths.AssetsDir)
	engine := &fakeEngine{
		narrationSeconds: 30,
		composeErr:       services.Wrap(services.ErrTransient, "render", "compose video", "encoder crashed", nil),
	}
	renderer := render.NewRenderer(cfg, st, logging.NewNop())
	renderer.WithEngine(engine)
	ctx := context.Background()

	readyStory(t, st, cfg, "s1")

	story, err := renderer.Render(ctx, "s1")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if story.Status != store.StatusError || story.ErrorStage != store.StageRender {
		t.Fatalf("failure state: status=%s stage=%s", story.Status, story.ErrorStage)
	}
	if story.RetryCount != 1 {
		t.Fatalf("retry count = %d, want 1", story.RetryCount)
	}

	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "s1.mp4")); !os.IsNotExist(err) {
		t.Error("failed render left a video in the output dir")
	}
	for _, name := range []string{"mixed.m4a", "background.mp4", "subtitles.ass"} {
		if _, err := os.Stat(filepath.Join(cfg.StoryDir("s1"), name)); !os.IsNotExist(err) {
			t.Errorf("work file %s left in staging after failure", name)
		}
	}

	retried, err := renderer.Retry(ctx, "s1")
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retried.Status != store.StatusReady {
		t.Fatalf("retry status = %s, want ready", retried.Status)
	}
}

func TestRenderInvalidTranscriptParksForOperator(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	seedAssets(t, cfg.Paths.AssetsDir)
	renderer := render.NewRenderer(cfg, st, logging.NewNop())
	renderer.WithEngine(&fakeEngine{narrationSeconds: 30})
	ctx := context.Background()

	testsupport.NewStory(t, st, "s1")
	story := testsupport.AdvanceStory(t, st, cfg, "s1", store.StatusReady)
	if err := os.WriteFile(story.TimestampsPath, []byte("not json"), 0o644); err != nil {
		t.Fatalf("corrupt transcript: %v", err)
	}

	updated, err := renderer.Render(ctx, "s1")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if updated.Status != store.StatusError || updated.ErrorStage != store.StageRender {
		t.Fatalf("failure state: status=%s stage=%s", updated.Status, updated.ErrorStage)
	}
	if updated.RetryCount != 0 {
		t.Fatalf("bad input must not consume the retry budget: %d", updated.RetryCount)
	}

	// After the operator repairs the transcript, a retry renders normally.
	writeTranscript(t, story.TimestampsPath)
	if _, err := renderer.Retry(ctx, "s1"); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	repaired, err := renderer.Render(ctx, "s1")
	if err != nil {
		t.Fatalf("Render after repair: %v", err)
	}
	if repaired.Status != store.StatusRendered {
		t.Fatalf("status after repair = %s, want rendered", repaired.Status)
	}
}

func TestRenderRejectsOverrunningTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	seedAssets(t, cfg.Paths.AssetsDir)
	// Narration is far shorter than the transcript claims.
	renderer := render.NewRenderer(cfg, st, logging.NewNop())
	renderer.WithEngine(&fakeEngine{narrationSeconds: 5})
	ctx := context.Background()

	readyStory(t, st, cfg, "s1")

	story, err := renderer.Render(ctx, "s1")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if story.Status != store.StatusError || story.ErrorStage != store.StageRender {
		t.Fatalf("failure state: status=%s stage=%s", story.Status, story.ErrorStage)
	}
	if story.RetryCount != 0 {
		t.Fatalf("inconsistent inputs must not consume the retry budget: %d", story.RetryCount)
	}
}

func TestRenderCancellationResumesAtReady(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	seedAssets(t, cfg.Paths.AssetsDir)
	engine := &fakeEngine{narrationSeconds: 30}
	renderer := render.NewRenderer(cfg, st, logging.NewNop())
	renderer.WithEngine(engine)

	readyStory(t, st, cfg, "s1")

	// Cancel mid-render, while the composition step is running.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine.onCompose = cancel

	story, err := renderer.Render(ctx, "s1")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if story.Status != store.StatusError || story.ErrorStage != store.StageCancelled {
		t.Fatalf("cancel state: status=%s stage=%s", story.Status, story.ErrorStage)
	}
	if story.RetryCount != 0 {
		t.Fatalf("cancellation must not consume the retry budget: %d", story.RetryCount)
	}
	if story.ErrorStage.ResumeStatus() != store.StatusReady {
		t.Fatalf("cancelled stage resumes at %s", story.ErrorStage.ResumeStatus())
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "s1.mp4")); !os.IsNotExist(err) {
		t.Error("cancelled render left a video in the output dir")
	}
}

func TestRenderRejectsNonReadyStory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	renderer := render.NewRenderer(cfg, st, logging.NewNop())
	renderer.WithEngine(&fakeEngine{narrationSeconds: 30})

	testsupport.NewStory(t, st, "s1")
	if _, err := renderer.Render(context.Background(), "s1"); err == nil {
		t.Fatal("expected error rendering a crawled story")
	}
}

func TestRenderWritesSubtitleScript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	seedAssets(t, cfg.Paths.AssetsDir)

	var capturedASS string
	engine := &assCapturingEngine{
		fakeEngine: &fakeEngine{narrationSeconds: 30},
		captured:   &capturedASS,
	}
	renderer := render.NewRenderer(cfg, st, logging.NewNop())
	renderer.WithEngine(engine)

	readyStory(t, st, cfg, "s1")

	if _, err := renderer.Render(context.Background(), "s1"); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if capturedASS == "" {
		t.Fatal("subtitle script never written")
	}
}

func TestRenderBatchCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	seedAssets(t, cfg.Paths.AssetsDir)
	renderer := render.NewRenderer(cfg, st, logging.NewNop())
	renderer.WithEngine(&fakeEngine{narrationSeconds: 30})
	ctx := context.Background()

	readyStory(t, st, cfg, "s1")
	readyStory(t, st, cfg, "s2")
	testsupport.NewStory(t, st, "s3") // still crawled, left alone

	result, err := renderer.RenderBatch(ctx)
	if err != nil {
		t.Fatalf("RenderBatch: %v", err)
	}
	if result.Rendered != 2 || result.Failed != 0 || result.PermanentlyFailed != 0 {
		t.Fatalf("batch result = %+v", result)
	}

	crawled, err := st.GetByID(ctx, "s3")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if crawled.Status != store.StatusCrawled {
		t.Fatalf("unrelated story moved to %s", crawled.Status)
	}
}

func TestSelectAssetsDeterministic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seedAssets(t, cfg.Paths.AssetsDir)

	first, err := render.SelectAssets(cfg.Paths.AssetsDir, "s1")
	if err != nil {
		t.Fatalf("SelectAssets: %v", err)
	}
	second, err := render.SelectAssets(cfg.Paths.AssetsDir, "s1")
	if err != nil {
		t.Fatalf("SelectAssets: %v", err)
	}
	if first != second {
		t.Fatalf("selection changed between renders: %+v vs %+v", first, second)
	}
}

func TestSelectAssetsEmptyLibrary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.AssetsDir, "music", "calm.mp3"), 256)

	_, err := render.SelectAssets(cfg.Paths.AssetsDir, "s1")
	if err == nil {
		t.Fatal("expected error with no background footage")
	}
	if services.IsRetryable(err) {
		t.Fatalf("empty asset library should not be retryable: %v", err)
	}
}

// assCapturingEngine snapshots the subtitle script before cleanup removes it.
type assCapturingEngine struct {
	*fakeEngine
	captured *string
}

func (a *assCapturingEngine) Compose(ctx context.Context, comp ffmpeg.Composition) error {
	if data, err := os.ReadFile(comp.SubtitlesPath); err == nil {
		*a.captured = string(data)
	}
	return a.fakeEngine.Compose(ctx, comp)
}
