package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"newsforge/internal/assetindex"
	"newsforge/internal/generation"
	"newsforge/internal/logging"
	"newsforge/internal/production"
)

// Scene and shot attributes recorded on generated video assets. Presenter
// clips share one vocabulary so later productions can rank them for reuse.
const (
	scenePresenter  = "presenter"
	sceneBackground = "background"
	shotTalkingHead = "talking-head"
	shotWide        = "wide"
)

// scriptStage produces the script artifact and always refreshes the viral
// hook, even when the script itself is carried over from a previous run.
func (c *Controller) scriptStage(ctx context.Context, logger *slog.Logger, job *production.Job, selection []generation.Item) error {
	ctx = logging.WithStage(ctx, "script")
	fingerprint := production.SelectionFingerprint(job.ChannelID, job.DateKey, job.SelectedItemIDs)

	if job.HasScript() {
		if err := job.Apply(production.EventScriptReady); err != nil {
			return generation.Wrap(generation.ErrValidation, "script", "transition", err.Error(), nil)
		}
		logger.Info("script carried over, skipping generation",
			logging.Int("lines", len(job.Script)))
	} else {
		if err := job.Apply(production.EventScriptRequested); err != nil {
			return generation.Wrap(generation.ErrValidation, "script", "transition", err.Error(), nil)
		}
		key := "script:" + fingerprint
		value, err := c.deps.Cache.GetOrGenerate(ctx, key, c.scriptTTL(), costScript, func(ctx context.Context) (string, error) {
			lines, err := c.deps.Generator.GenerateScript(ctx, selection, c.channelConfig(), job.ViralHook)
			if err != nil {
				return "", generation.Wrap(generation.ErrGeneration, "script", "generate", "", err)
			}
			encoded, err := json.Marshal(lines)
			if err != nil {
				return "", generation.Wrap(generation.ErrGeneration, "script", "encode", "", err)
			}
			return string(encoded), nil
		})
		if err != nil {
			return err
		}
		var lines []production.ScriptLine
		if err := json.Unmarshal([]byte(value), &lines); err != nil {
			return generation.Wrap(generation.ErrGeneration, "script", "decode", "cached script unreadable", err)
		}
		if len(lines) == 0 {
			return generation.Wrap(generation.ErrGeneration, "script", "generate", "empty script", nil)
		}
		job.Script = lines
		if err := job.Apply(production.EventScriptReady); err != nil {
			return generation.Wrap(generation.ErrValidation, "script", "transition", err.Error(), nil)
		}
	}

	// The hook is regenerated on every run, resumed or not, so metadata
	// derived from it stays consistent with the current selection.
	hookKey := "hook:" + fingerprint
	hook, err := c.deps.Cache.GetOrGenerateWithFuzzy(ctx, hookKey, c.hookTTL(), costHook, 0, func(ctx context.Context) (string, error) {
		generated, err := c.deps.Generator.GenerateHook(ctx, selection, c.channelConfig())
		if err != nil {
			return "", generation.Wrap(generation.ErrGeneration, "script", "hook", "", err)
		}
		return generated, nil
	})
	if err != nil {
		return err
	}
	job.ViralHook = hook
	return nil
}

// mediaResults collects the outputs of the four fanned-out media tasks.
// Each task writes only its own fields; the errgroup barrier publishes them.
type mediaResults struct {
	audioRefs []string
	videoRefs []string
	wide      []string
	metadata  *production.Metadata
}

// mediaStage fans out audio, per-segment video, background video, and
// metadata generation, then merges the settled results into segments.
func (c *Controller) mediaStage(ctx context.Context, logger *slog.Logger, job *production.Job, selection []generation.Item) error {
	ctx = logging.WithStage(ctx, "media")
	if err := job.Apply(production.EventMediaStarted); err != nil {
		return generation.Wrap(generation.ErrValidation, "media", "transition", err.Error(), nil)
	}

	results := mediaResults{
		audioRefs: make([]string, len(job.Script)),
		videoRefs: make([]string, len(job.Script)),
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return c.audioTask(groupCtx, logger, job, &results) })
	group.Go(func() error { return c.segmentVideoTask(groupCtx, logger, job, &results) })
	group.Go(func() error { return c.backgroundVideoTask(groupCtx, logger, job, &results) })
	group.Go(func() error { return c.metadataTask(groupCtx, job, selection, &results) })
	if err := group.Wait(); err != nil {
		return err
	}

	c.merge(job, &results)
	if err := job.Apply(production.EventMediaReady); err != nil {
		return generation.Wrap(generation.ErrValidation, "media", "transition", err.Error(), nil)
	}
	logger.Info("media generation settled",
		logging.Int("segments", len(job.Segments)),
		logging.Int("wide_videos", len(job.Videos.Wide)))
	return nil
}

// audioTask synthesizes one clip per script line and uploads each to the
// blob store. Skipped when every line already has audio from a prior run.
func (c *Controller) audioTask(ctx context.Context, logger *slog.Logger, job *production.Job, results *mediaResults) error {
	if job.HasAudio() {
		for i, segment := range job.Segments {
			if i < len(results.audioRefs) {
				results.audioRefs[i] = segment.AudioRef
			}
		}
		logger.Info("audio carried over, skipping generation")
		return nil
	}

	voices := c.voiceAssignments(job.Script)
	for i, line := range job.Script {
		if err := ctx.Err(); err != nil {
			return generation.Wrap(generation.ErrGeneration, "media", "audio", "cancelled", err)
		}
		clip, err := c.deps.Generator.GenerateAudio(ctx, line, voices[line.Speaker])
		if err != nil {
			return generation.Wrap(generation.ErrGeneration, "media", "audio", fmt.Sprintf("line %d", i), err)
		}
		ref, err := c.deps.Blobs.Upload(ctx, clip.Data, fmt.Sprintf("jobs/%s/audio/seg-%d.mp3", job.ID, i))
		if err != nil {
			return generation.Wrap(generation.ErrPersistence, "media", "audio upload", fmt.Sprintf("line %d", i), err)
		}
		results.audioRefs[i] = ref
		c.insertAsset(ctx, logger, assetindex.Record{
			ID:              uuid.NewString(),
			ChannelID:       job.ChannelID,
			Type:            assetindex.AssetAudio,
			URL:             ref,
			ProductionID:    job.ID,
			DialogueText:    line.Text,
			DurationSeconds: clip.Duration.Seconds(),
			CreatedAt:       c.now().UTC(),
		})
	}
	return nil
}

// segmentVideoTask finds or generates a presenter clip per script line.
// The asset index is consulted first; uncovered lines go to the provider as
// one bounded-concurrency batch.
func (c *Controller) segmentVideoTask(ctx context.Context, logger *slog.Logger, job *production.Job, results *mediaResults) error {
	if len(job.Videos.Roles) > 0 {
		for i, segment := range job.Segments {
			if i < len(results.videoRefs) {
				results.videoRefs[i] = segment.VideoRef
			}
		}
		logger.Info("presenter videos carried over, skipping generation")
		return nil
	}

	type pending struct {
		line  int
		batch int
	}
	var misses []pending
	requests := make([]generation.VideoRequest, 0, len(job.Script))

	for i, line := range job.Script {
		matches, err := c.deps.Assets.FindSimilar(ctx, job.ChannelID, assetindex.AssetVideo, assetindex.Criteria{
			DialogueText:  line.Text,
			SceneType:     scenePresenter,
			ShotType:      shotTalkingHead,
			MinSimilarity: c.cfg.Assets.MinSimilarity,
		})
		if err != nil {
			return generation.Wrap(generation.ErrPersistence, "media", "asset lookup", fmt.Sprintf("line %d", i), err)
		}
		if len(matches) > 0 {
			best := matches[0]
			results.videoRefs[i] = best.Record.URL
			if err := c.deps.Assets.RecordReuse(ctx, best.Record.ID); err != nil {
				logger.Warn("reuse bookkeeping failed",
					logging.String("asset_id", best.Record.ID),
					logging.Error(err))
			}
			logger.Info("presenter video reused",
				logging.Int("line", i),
				logging.Float64("score", best.Score),
				logging.String("reason", best.Reason))
			continue
		}
		misses = append(misses, pending{line: i, batch: len(requests)})
		requests = append(requests, generation.VideoRequest{
			Prompt:      c.presenterPrompt(line),
			AspectRatio: c.cfg.Channel.AspectRatio,
			Resolution:  c.cfg.Channel.Resolution,
		})
	}
	if len(requests) == 0 {
		return nil
	}

	batch := generation.GenerateVideoBatch(ctx, c.deps.Videos, requests, c.cfg.Providers.BatchConcurrency)
	for _, miss := range misses {
		outcome := batch[miss.batch]
		if outcome.Err != nil {
			return generation.Wrap(generation.ErrGeneration, "media", "video", fmt.Sprintf("line %d", miss.line), outcome.Err)
		}
		line := job.Script[miss.line]
		results.videoRefs[miss.line] = outcome.Result.URL
		logger.Info("presenter video generated",
			logging.Int("line", miss.line),
			logging.String("provider", outcome.Result.Provider))
		c.insertAsset(ctx, logger, assetindex.Record{
			ID:           uuid.NewString(),
			ChannelID:    job.ChannelID,
			Type:         assetindex.AssetVideo,
			URL:          outcome.Result.URL,
			ProductionID: job.ID,
			DialogueText: line.Text,
			SceneType:    scenePresenter,
			ShotType:     shotTalkingHead,
			Resolution:   c.cfg.Channel.Resolution,
			AspectRatio:  c.cfg.Channel.AspectRatio,
			CreatedAt:    c.now().UTC(),
		})
	}
	return nil
}

// backgroundVideoTask produces the wide intro/outro clip.
func (c *Controller) backgroundVideoTask(ctx context.Context, logger *slog.Logger, job *production.Job, results *mediaResults) error {
	if len(job.Videos.Wide) > 0 {
		results.wide = job.Videos.Wide
		logger.Info("background video carried over, skipping generation")
		return nil
	}

	// The generation prompt doubles as the background clip's dialogue text
	// so scoring has a text signal; scene plus shot alone stay below the
	// reuse floor.
	prompt := c.backgroundPrompt()
	matches, err := c.deps.Assets.FindSimilar(ctx, job.ChannelID, assetindex.AssetVideo, assetindex.Criteria{
		DialogueText:  prompt,
		SceneType:     sceneBackground,
		ShotType:      shotWide,
		MinSimilarity: c.cfg.Assets.MinSimilarity,
	})
	if err != nil {
		return generation.Wrap(generation.ErrPersistence, "media", "asset lookup", "background", err)
	}
	if len(matches) > 0 {
		best := matches[0]
		results.wide = []string{best.Record.URL}
		if err := c.deps.Assets.RecordReuse(ctx, best.Record.ID); err != nil {
			logger.Warn("reuse bookkeeping failed",
				logging.String("asset_id", best.Record.ID),
				logging.Error(err))
		}
		return nil
	}

	result, err := c.deps.Videos.GenerateVideo(ctx, generation.VideoRequest{
		Prompt:      prompt,
		AspectRatio: c.cfg.Channel.AspectRatio,
		Resolution:  c.cfg.Channel.Resolution,
	})
	if err != nil {
		return generation.Wrap(generation.ErrGeneration, "media", "video", "background", err)
	}
	results.wide = []string{result.URL}
	c.insertAsset(ctx, logger, assetindex.Record{
		ID:           uuid.NewString(),
		ChannelID:    job.ChannelID,
		Type:         assetindex.AssetVideo,
		URL:          result.URL,
		ProductionID: job.ID,
		DialogueText: prompt,
		SceneType:    sceneBackground,
		ShotType:     shotWide,
		Resolution:   c.cfg.Channel.Resolution,
		AspectRatio:  c.cfg.Channel.AspectRatio,
		CreatedAt:    c.now().UTC(),
	})
	return nil
}

// metadataTask generates publish metadata through the cache.
func (c *Controller) metadataTask(ctx context.Context, job *production.Job, selection []generation.Item, results *mediaResults) error {
	if job.HasMetadata() {
		results.metadata = job.Metadata
		return nil
	}

	fingerprint := production.SelectionFingerprint(job.ChannelID, job.DateKey, job.SelectedItemIDs)
	key := "metadata:" + job.DateKey + ":" + fingerprint
	value, err := c.deps.Cache.GetOrGenerate(ctx, key, c.metadataTTL(), costMetadata, func(ctx context.Context) (string, error) {
		meta, err := c.deps.Generator.GenerateMetadata(ctx, selection, c.channelConfig(), job.DateKey)
		if err != nil {
			return "", generation.Wrap(generation.ErrGeneration, "media", "metadata", "", err)
		}
		encoded, err := json.Marshal(meta)
		if err != nil {
			return "", generation.Wrap(generation.ErrGeneration, "media", "metadata encode", "", err)
		}
		return string(encoded), nil
	})
	if err != nil {
		return err
	}
	var meta production.Metadata
	if err := json.Unmarshal([]byte(value), &meta); err != nil {
		return generation.Wrap(generation.ErrGeneration, "media", "metadata decode", "cached metadata unreadable", err)
	}
	if strings.TrimSpace(meta.Title) == "" {
		return generation.Wrap(generation.ErrGeneration, "media", "metadata", "empty title", nil)
	}
	results.metadata = &meta
	return nil
}

// merge rebuilds segments by pairing each script line's audio with the video
// produced for the same index. A missing video is valid, not an error.
func (c *Controller) merge(job *production.Job, results *mediaResults) {
	segments := make([]production.Segment, len(job.Script))
	roles := make(map[string][]string)
	for i, line := range job.Script {
		segments[i] = production.Segment{
			Speaker:  line.Speaker,
			Text:     line.Text,
			AudioRef: results.audioRefs[i],
			VideoRef: results.videoRefs[i],
		}
		if results.videoRefs[i] != "" {
			roles[line.Speaker] = append(roles[line.Speaker], results.videoRefs[i])
		}
	}
	for role, urls := range roles {
		roles[role] = production.DedupeURLs(urls)
	}
	job.Segments = segments
	job.Videos = production.VideoAssets{
		Wide:  production.DedupeURLs(results.wide),
		Roles: roles,
	}
	job.Metadata = results.metadata
}

// thumbnailStage needs the metadata title for context and is skipped when
// usable thumbnails already exist.
func (c *Controller) thumbnailStage(ctx context.Context, logger *slog.Logger, job *production.Job) error {
	ctx = logging.WithStage(ctx, "thumbnail")
	if !job.HasMetadata() {
		return generation.Wrap(generation.ErrValidation, "thumbnail", "precondition", "metadata title required", nil)
	}
	if job.HasThumbnails() {
		logger.Info("thumbnails carried over, skipping generation")
		return completeFrom(job)
	}

	if err := job.Apply(production.EventThumbnailStarted); err != nil {
		return generation.Wrap(generation.ErrValidation, "thumbnail", "transition", err.Error(), nil)
	}
	data, err := c.deps.Generator.GenerateThumbnail(ctx, job.Metadata.Title, c.channelConfig())
	if err != nil {
		return generation.Wrap(generation.ErrGeneration, "thumbnail", "generate", "", err)
	}
	ref, err := c.deps.Blobs.Upload(ctx, data, fmt.Sprintf("jobs/%s/thumbnail/thumb-0.png", job.ID))
	if err != nil {
		return generation.Wrap(generation.ErrPersistence, "thumbnail", "upload", "", err)
	}
	job.ThumbnailURLs = []string{ref}
	c.insertAsset(ctx, logger, assetindex.Record{
		ID:           uuid.NewString(),
		ChannelID:    job.ChannelID,
		Type:         assetindex.AssetImage,
		URL:          ref,
		ProductionID: job.ID,
		DialogueText: job.Metadata.Title,
		CreatedAt:    c.now().UTC(),
	})
	return completeFrom(job)
}

func completeFrom(job *production.Job) error {
	if err := job.Apply(production.EventCompleted); err != nil {
		return generation.Wrap(generation.ErrValidation, "thumbnail", "transition", err.Error(), nil)
	}
	return nil
}

// insertAsset registers a generated artifact for future reuse ranking.
// Registration failures are logged, never fatal: the artifact itself is
// already on the job.
func (c *Controller) insertAsset(ctx context.Context, logger *slog.Logger, record assetindex.Record) {
	if c.deps.Catalog == nil {
		return
	}
	if err := c.deps.Catalog.InsertAsset(ctx, record); err != nil {
		logger.Warn("asset registration failed",
			logging.String("asset_id", record.ID),
			logging.String("asset_type", string(record.Type)),
			logging.Error(err))
	}
}

// voiceAssignments maps each distinct speaker, in first-appearance order, to
// the configured presenter voices.
func (c *Controller) voiceAssignments(script []production.ScriptLine) map[string]string {
	voices := []string{c.cfg.Channel.PresenterAVox, c.cfg.Channel.PresenterBVox}
	assigned := make(map[string]string)
	next := 0
	for _, line := range script {
		if _, ok := assigned[line.Speaker]; ok {
			continue
		}
		voice := ""
		if next < len(voices) {
			voice = voices[next]
		}
		assigned[line.Speaker] = voice
		next++
	}
	return assigned
}

func (c *Controller) presenterPrompt(line production.ScriptLine) string {
	var b strings.Builder
	b.WriteString("News presenter ")
	b.WriteString(line.Speaker)
	b.WriteString(" delivering to camera: ")
	b.WriteString(line.Text)
	if topic := strings.TrimSpace(c.cfg.Channel.Topic); topic != "" {
		b.WriteString(" (")
		b.WriteString(topic)
		b.WriteString(" studio)")
	}
	return b.String()
}

func (c *Controller) backgroundPrompt() string {
	topic := strings.TrimSpace(c.cfg.Channel.Topic)
	if topic == "" {
		topic = "news"
	}
	return fmt.Sprintf("Wide establishing shot of a modern %s studio, no people, broadcast lighting", topic)
}
