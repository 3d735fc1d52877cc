package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"newsforge/internal/assetindex"
	"newsforge/internal/config"
	"newsforge/internal/contentcache"
	"newsforge/internal/generation"
	"newsforge/internal/logging"
	"newsforge/internal/production"
)

type fakeGenerator struct {
	mu           sync.Mutex
	scriptCalls  int
	hookCalls    int
	audioCalls   int
	metaCalls    int
	thumbCalls   int
	failAudio    bool
	failThumb    bool
	scriptResult []production.ScriptLine
}

func (g *fakeGenerator) GenerateScript(_ context.Context, _ []generation.Item, _ generation.ChannelConfig, _ string) ([]production.ScriptLine, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scriptCalls++
	return g.scriptResult, nil
}

func (g *fakeGenerator) GenerateHook(context.Context, []generation.Item, generation.ChannelConfig) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hookCalls++
	return fmt.Sprintf("hook-%d", g.hookCalls), nil
}

func (g *fakeGenerator) GenerateAudio(_ context.Context, line production.ScriptLine, _ string) (generation.AudioClip, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.audioCalls++
	if g.failAudio {
		return generation.AudioClip{}, errors.New("voice backend down")
	}
	return generation.AudioClip{Data: []byte("audio:" + line.Text), Duration: 3 * time.Second}, nil
}

func (g *fakeGenerator) GenerateVideo(context.Context, generation.VideoRequest) (generation.VideoResult, error) {
	return generation.VideoResult{}, errors.New("use the video provider")
}

func (g *fakeGenerator) GenerateMetadata(context.Context, []generation.Item, generation.ChannelConfig, string) (production.Metadata, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.metaCalls++
	return production.Metadata{Title: "Daily Brief", Description: "desc", Tags: []string{"news"}}, nil
}

func (g *fakeGenerator) GenerateThumbnail(context.Context, string, generation.ChannelConfig) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.thumbCalls++
	if g.failThumb {
		return nil, errors.New("render backend down")
	}
	return []byte("png"), nil
}

type fakeVideoProvider struct {
	mu    sync.Mutex
	calls int
}

func (p *fakeVideoProvider) Name() string                     { return "fake" }
func (p *fakeVideoProvider) Available(context.Context) bool   { return true }
func (p *fakeVideoProvider) GenerateVideo(_ context.Context, req generation.VideoRequest) (generation.VideoResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return generation.VideoResult{URL: fmt.Sprintf("https://cdn.example/video-%d.mp4", p.calls), Provider: "fake"}, nil
}

type fakeBlobs struct {
	mu      sync.Mutex
	uploads []string
}

func (b *fakeBlobs) Upload(_ context.Context, _ []byte, path string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads = append(b.uploads, path)
	return "file:///" + path, nil
}

func (b *fakeBlobs) Fetch(context.Context, string) ([]byte, error) { return nil, errors.New("not used") }
func (b *fakeBlobs) Delete(context.Context, []string) error        { return nil }

type memoryCatalog struct {
	mu      sync.Mutex
	records map[string]assetindex.Record
}

func newMemoryCatalog() *memoryCatalog {
	return &memoryCatalog{records: make(map[string]assetindex.Record)}
}

func (c *memoryCatalog) InsertAsset(_ context.Context, record assetindex.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[record.ID] = record
	return nil
}

func (c *memoryCatalog) GetAsset(_ context.Context, id string) (*assetindex.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if record, ok := c.records[id]; ok {
		return &record, nil
	}
	return nil, nil
}

func (c *memoryCatalog) AssetsByChannel(_ context.Context, channelID string, assetType assetindex.AssetType, limit int) ([]assetindex.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []assetindex.Record
	for _, record := range c.records {
		if record.ChannelID != channelID || record.Type != assetType {
			continue
		}
		out = append(out, record)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (c *memoryCatalog) MarkAssetUsed(_ context.Context, id string, usedAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	record, ok := c.records[id]
	if !ok {
		return errors.New("asset not found")
	}
	record.UseCount++
	record.LastUsedAt = &usedAt
	c.records[id] = record
	return nil
}

func (c *memoryCatalog) PopularAssets(context.Context, string, assetindex.AssetType, int) ([]assetindex.Record, error) {
	return nil, nil
}

type recordingJobStore struct {
	mu    sync.Mutex
	saved []*production.Job
	fail  bool
}

func (s *recordingJobStore) SaveJob(_ context.Context, job *production.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("disk full")
	}
	s.saved = append(s.saved, job)
	return nil
}

type fixture struct {
	controller *Controller
	generator  *fakeGenerator
	videos     *fakeVideoProvider
	blobs      *fakeBlobs
	catalog    *memoryCatalog
	jobs       *recordingJobStore
	progress   *[]Progress
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Channel.ID = "chan-1"
	cfg.Channel.Topic = "finance"
	cfg.Channel.PresenterAVox = "voice-a"
	cfg.Channel.PresenterBVox = "voice-b"

	generator := &fakeGenerator{scriptResult: []production.ScriptLine{
		{Speaker: "anna", Text: "Markets opened higher this morning."},
		{Speaker: "ben", Text: "Tech stocks led the rally."},
	}}
	videos := &fakeVideoProvider{}
	blobs := &fakeBlobs{}
	catalog := newMemoryCatalog()
	jobs := &recordingJobStore{}
	var events []Progress

	controller := New(&cfg, Deps{
		Jobs:      jobs,
		Cache:     contentcache.New("chan-1", nil, logging.NewNop(), contentcache.Options{}),
		Assets:    assetindex.New(catalog, logging.NewNop()),
		Catalog:   catalog,
		Generator: generator,
		Videos:    videos,
		Blobs:     blobs,
		Logger:    logging.NewNop(),
		OnProgress: func(p Progress) {
			events = append(events, p)
		},
	})
	return &fixture{
		controller: controller,
		generator:  generator,
		videos:     videos,
		blobs:      blobs,
		catalog:    catalog,
		jobs:       jobs,
		progress:   &events,
	}
}

func newJob() *production.Job {
	return &production.Job{
		ID:        "job-1",
		ChannelID: "chan-1",
		UserID:    "user-1",
		DateKey:   "2026-08-28",
	}
}

func selection() []generation.Item {
	return []generation.Item{
		{ID: "item-1", Title: "Markets open higher"},
		{ID: "item-2", Title: "Tech rally continues"},
	}
}

func TestStartOrResumeCompletesFreshJob(t *testing.T) {
	fx := newFixture(t)
	job, err := fx.controller.StartOrResume(context.Background(), newJob(), selection())
	if err != nil {
		t.Fatalf("StartOrResume: %v", err)
	}

	if job.Status != production.StatusCompleted {
		t.Fatalf("status = %s, want completed", job.Status)
	}
	if job.CompletedAt == nil {
		t.Fatal("expected CompletedAt to be set")
	}
	if len(job.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(job.Segments))
	}
	for i, segment := range job.Segments {
		if segment.AudioRef == "" {
			t.Fatalf("segment %d missing audio", i)
		}
		if segment.VideoRef == "" {
			t.Fatalf("segment %d missing video", i)
		}
	}
	if len(job.Videos.Wide) != 1 {
		t.Fatalf("wide videos = %d, want 1", len(job.Videos.Wide))
	}
	if !job.HasMetadata() || !job.HasThumbnails() {
		t.Fatal("expected metadata and thumbnails")
	}
	if job.ViralHook == "" {
		t.Fatal("expected viral hook")
	}
	if job.CurrentStep != 3 {
		t.Fatalf("current step = %d, want 3", job.CurrentStep)
	}

	events := *fx.progress
	if len(events) != 4 {
		t.Fatalf("progress events = %d, want 4", len(events))
	}
	if events[len(events)-1].Label != "completed" {
		t.Fatalf("last progress label = %q", events[len(events)-1].Label)
	}
	for _, event := range events {
		if event.StepCount != 4 {
			t.Fatalf("step count = %d, want 4", event.StepCount)
		}
	}
	if len(fx.jobs.saved) == 0 {
		t.Fatal("expected checkpoints to be written")
	}
}

func TestValidationErrors(t *testing.T) {
	fx := newFixture(t)

	if _, err := fx.controller.StartOrResume(context.Background(), nil, selection()); !errors.Is(err, generation.ErrValidation) {
		t.Fatalf("nil job: err = %v, want validation", err)
	}

	job := newJob()
	job.ChannelID = ""
	if _, err := fx.controller.StartOrResume(context.Background(), job, selection()); !errors.Is(err, generation.ErrValidation) {
		t.Fatalf("missing channel: err = %v, want validation", err)
	}

	job = newJob()
	if _, err := fx.controller.StartOrResume(context.Background(), job, nil); !errors.Is(err, generation.ErrValidation) {
		t.Fatalf("missing selection: err = %v, want validation", err)
	}

	job = newJob()
	job.Status = production.StatusCompleted
	if _, err := fx.controller.StartOrResume(context.Background(), job, selection()); !errors.Is(err, generation.ErrValidation) {
		t.Fatalf("completed job: err = %v, want validation", err)
	}
}

func TestFailureMarksJobAndKeepsArtifacts(t *testing.T) {
	fx := newFixture(t)
	fx.generator.failAudio = true

	job := newJob()
	_, err := fx.controller.StartOrResume(context.Background(), job, selection())
	if !errors.Is(err, generation.ErrGeneration) {
		t.Fatalf("err = %v, want generation error", err)
	}
	if job.Status != production.StatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if job.ErrorMessage == "" {
		t.Fatal("expected error message on job")
	}
	// The script stage completed and checkpointed before the failure.
	if !job.HasScript() || job.ViralHook == "" {
		t.Fatal("expected script artifacts to survive the failure")
	}
}

func TestResumeSkipsScriptButRegeneratesHook(t *testing.T) {
	fx := newFixture(t)
	fx.generator.failThumb = true

	job := newJob()
	if _, err := fx.controller.StartOrResume(context.Background(), job, selection()); err == nil {
		t.Fatal("expected first run to fail at thumbnail stage")
	}
	if job.Status != production.StatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	scriptCalls := fx.generator.scriptCalls
	audioCalls := fx.generator.audioCalls
	videoCalls := fx.videos.calls
	hookCalls := fx.generator.hookCalls
	stepBefore := job.CurrentStep

	// Invalidate the hook cache so the regenerate-on-resume behavior is
	// observable rather than absorbed by a cache hit.
	if _, err := fx.controller.deps.Cache.InvalidateByPrefix(context.Background(), "hook:"); err != nil {
		t.Fatalf("InvalidateByPrefix: %v", err)
	}

	fx.generator.failThumb = false
	resumed, err := fx.controller.StartOrResume(context.Background(), job, selection())
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.Status != production.StatusCompleted {
		t.Fatalf("status = %s, want completed", resumed.Status)
	}
	if resumed.ErrorMessage != "" {
		t.Fatalf("error message not cleared: %q", resumed.ErrorMessage)
	}
	if fx.generator.scriptCalls != scriptCalls {
		t.Fatalf("script regenerated on resume: %d -> %d", scriptCalls, fx.generator.scriptCalls)
	}
	if fx.generator.audioCalls != audioCalls {
		t.Fatalf("audio regenerated on resume: %d -> %d", audioCalls, fx.generator.audioCalls)
	}
	if fx.videos.calls != videoCalls {
		t.Fatalf("video regenerated on resume: %d -> %d", videoCalls, fx.videos.calls)
	}
	if fx.generator.hookCalls <= hookCalls {
		t.Fatal("expected the viral hook to be regenerated on resume")
	}
	if resumed.CurrentStep <= stepBefore {
		t.Fatalf("current step did not advance: %d -> %d", stepBefore, resumed.CurrentStep)
	}
}

func TestSecondProductionReusesSimilarVideo(t *testing.T) {
	fx := newFixture(t)
	first := newJob()
	if _, err := fx.controller.StartOrResume(context.Background(), first, selection()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	videoCalls := fx.videos.calls

	second := newJob()
	second.ID = "job-2"
	second.DateKey = "2026-08-29"
	// Near-identical dialogue so the index scores the prior clips above
	// the reuse floor.
	fx.generator.scriptResult = []production.ScriptLine{
		{Speaker: "anna", Text: "Markets opened higher this morning!"},
		{Speaker: "ben", Text: "Tech stocks led the rally again."},
	}
	if _, err := fx.controller.StartOrResume(context.Background(), second, selection()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	// Presenter clips and the background clip should all come from the
	// index, so no new provider calls.
	if fx.videos.calls != videoCalls {
		t.Fatalf("provider calls grew %d -> %d, expected full reuse", videoCalls, fx.videos.calls)
	}
}

func TestCheckpointFailureDoesNotAbortRun(t *testing.T) {
	fx := newFixture(t)
	fx.jobs.fail = true

	job, err := fx.controller.StartOrResume(context.Background(), newJob(), selection())
	if err != nil {
		t.Fatalf("StartOrResume: %v", err)
	}
	if job.Status != production.StatusCompleted {
		t.Fatalf("status = %s, want completed despite checkpoint failures", job.Status)
	}
}

func TestRegenerateResetsAndRuns(t *testing.T) {
	fx := newFixture(t)
	job, err := fx.controller.StartOrResume(context.Background(), newJob(), selection())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Drop caches so regeneration actually calls the generator again.
	if _, err := fx.controller.deps.Cache.InvalidateByPrefix(context.Background(), ""); err != nil {
		t.Fatalf("InvalidateByPrefix: %v", err)
	}
	scriptCalls := fx.generator.scriptCalls

	regenerated, err := fx.controller.Regenerate(context.Background(), job, selection())
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if regenerated.Status != production.StatusCompleted {
		t.Fatalf("status = %s, want completed", regenerated.Status)
	}
	if fx.generator.scriptCalls != scriptCalls+1 {
		t.Fatalf("script calls = %d, want %d", fx.generator.scriptCalls, scriptCalls+1)
	}
	if regenerated.CurrentStep != 3 {
		t.Fatalf("current step = %d, want 3 after reset", regenerated.CurrentStep)
	}
}
