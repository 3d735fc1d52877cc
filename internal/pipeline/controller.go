package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"newsforge/internal/assetindex"
	"newsforge/internal/blobstore"
	"newsforge/internal/config"
	"newsforge/internal/contentcache"
	"newsforge/internal/generation"
	"newsforge/internal/logging"
	"newsforge/internal/production"
)

// Cost weights attached to cached artifacts, used for savings reporting.
const (
	costScript   = 0.08
	costHook     = 0.01
	costMetadata = 0.02
)

// stepCount is the number of progress steps one full run emits.
const stepCount = 4

// Progress is emitted as each stage completes.
type Progress struct {
	StepIndex int
	StepCount int
	Label     string
}

// JobStore persists job checkpoints.
type JobStore interface {
	SaveJob(ctx context.Context, job *production.Job) error
}

// Deps collects the collaborators a Controller needs.
type Deps struct {
	Jobs      JobStore
	Cache     *contentcache.Cache
	Assets    *assetindex.Index
	Catalog   assetindex.Catalog
	Generator generation.Generator
	Videos    generation.VideoProvider
	Blobs     blobstore.Store
	Logger    *slog.Logger
	// OnProgress receives stage-completion events. May be nil.
	OnProgress func(Progress)
}

// Controller runs the production stage machine for one channel.
type Controller struct {
	cfg    *config.Config
	deps   Deps
	logger *slog.Logger

	// flight serializes concurrent StartOrResume calls per job id; the
	// duplicate caller receives the winner's result.
	flight singleflight.Group

	now func() time.Time
}

// New constructs a Controller.
func New(cfg *config.Config, deps Deps) *Controller {
	return &Controller{
		cfg:    cfg,
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, "pipeline"),
		now:    time.Now,
	}
}

// StartOrResume runs the job to completion or failure, skipping stages whose
// artifacts already exist on the job. Concurrent calls for the same job id
// share one execution. Completed jobs are rejected; use Regenerate instead.
func (c *Controller) StartOrResume(ctx context.Context, job *production.Job, selection []generation.Item) (*production.Job, error) {
	if err := c.validate(job, selection); err != nil {
		return nil, err
	}
	result, err, _ := c.flight.Do(job.ID, func() (any, error) {
		return c.run(ctx, job, selection)
	})
	if err != nil {
		return nil, err
	}
	return result.(*production.Job), nil
}

// Regenerate restarts a completed job from scratch: artifacts are cleared,
// the step counter resets, and every stage runs again.
func (c *Controller) Regenerate(ctx context.Context, job *production.Job, selection []generation.Item) (*production.Job, error) {
	if job == nil {
		return nil, generation.Wrap(generation.ErrValidation, "", "regenerate", "job required", nil)
	}
	if err := job.Apply(production.EventRegenerated); err != nil {
		return nil, generation.Wrap(generation.ErrValidation, "", "regenerate", err.Error(), nil)
	}
	job.CurrentStep = 0
	job.Script = nil
	job.ViralHook = ""
	job.Metadata = nil
	job.Segments = nil
	job.Videos = production.VideoAssets{}
	job.ThumbnailURLs = nil
	job.ErrorMessage = ""
	job.CompletedAt = nil
	return c.StartOrResume(ctx, job, selection)
}

func (c *Controller) validate(job *production.Job, selection []generation.Item) error {
	if job == nil {
		return generation.Wrap(generation.ErrValidation, "", "start", "job required", nil)
	}
	if strings.TrimSpace(job.ID) == "" {
		return generation.Wrap(generation.ErrValidation, "", "start", "job id required", nil)
	}
	if strings.TrimSpace(job.ChannelID) == "" {
		return generation.Wrap(generation.ErrValidation, "", "start", "channel id required", nil)
	}
	if job.Status == production.StatusCompleted {
		return generation.Wrap(generation.ErrValidation, "", "start", "job already completed, regenerate instead", nil)
	}
	if len(selection) == 0 && len(job.SelectedItemIDs) == 0 {
		return generation.Wrap(generation.ErrValidation, "", "start", "selection required", nil)
	}
	return nil
}

func (c *Controller) run(ctx context.Context, job *production.Job, selection []generation.Item) (*production.Job, error) {
	ctx = logging.WithJobID(ctx, job.ID)
	ctx = logging.WithChannelID(ctx, job.ChannelID)
	logger := logging.WithContext(ctx, c.logger)

	switch {
	case job.Status == production.StatusFailed:
		if err := job.Apply(production.EventResumed); err != nil {
			return nil, generation.Wrap(generation.ErrValidation, "", "resume", err.Error(), nil)
		}
		job.ErrorMessage = ""
		logger.Info("resuming failed job", logging.Int("current_step", job.CurrentStep))
	case job.Status == "":
		job.Status = production.StatusCreated
	case job.Status != production.StatusCreated:
		// A checkpoint left mid-flight re-enters at the top of the stage
		// machine; stages whose artifacts survived are skipped.
		logger.Info("resuming interrupted job",
			logging.String("checkpoint_status", string(job.Status)),
			logging.Int("current_step", job.CurrentStep))
		job.Status = production.StatusCreated
	}
	if len(selection) > 0 {
		ids := make([]string, 0, len(selection))
		for _, item := range selection {
			ids = append(ids, item.ID)
		}
		job.SetSelection(ids)
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = c.now().UTC()
	}

	if err := c.scriptStage(ctx, logger, job, selection); err != nil {
		return nil, c.fail(ctx, logger, job, err)
	}
	c.completeStage(ctx, logger, job, 1, "script")

	if err := c.mediaStage(ctx, logger, job, selection); err != nil {
		return nil, c.fail(ctx, logger, job, err)
	}
	c.completeStage(ctx, logger, job, 2, "media")

	if err := c.thumbnailStage(ctx, logger, job); err != nil {
		return nil, c.fail(ctx, logger, job, err)
	}
	completed := c.now().UTC()
	job.CompletedAt = &completed
	c.completeStage(ctx, logger, job, 3, "thumbnail")

	c.emit(Progress{StepIndex: 4, StepCount: stepCount, Label: "completed"})
	logger.Info("production completed",
		logging.Int("segments", len(job.Segments)),
		logging.Int("current_step", job.CurrentStep))
	return job, nil
}

// fail marks the job failed, persists what exists, and returns the cause.
// Artifacts already checkpointed stay on the job for the next resume.
func (c *Controller) fail(ctx context.Context, logger *slog.Logger, job *production.Job, cause error) error {
	job.SetFailed(generation.Message(cause))
	c.checkpoint(ctx, logger, job)
	logger.Error("production failed",
		logging.String("status", string(job.Status)),
		logging.Error(cause))
	return cause
}

// completeStage advances the step counter, checkpoints, and emits progress.
func (c *Controller) completeStage(ctx context.Context, logger *slog.Logger, job *production.Job, stepIndex int, label string) {
	job.CurrentStep++
	c.checkpoint(ctx, logger, job)
	c.emit(Progress{StepIndex: stepIndex, StepCount: stepCount, Label: label})
}

// checkpoint persists the job synchronously before the next stage starts.
// A write failure is logged but never aborts an otherwise-successful stage.
func (c *Controller) checkpoint(ctx context.Context, logger *slog.Logger, job *production.Job) {
	job.UpdatedAt = c.now().UTC()
	if c.deps.Jobs == nil {
		return
	}
	if err := c.deps.Jobs.SaveJob(ctx, job.Clone()); err != nil {
		logger.Warn("checkpoint write failed",
			logging.String("status", string(job.Status)),
			logging.Int("current_step", job.CurrentStep),
			logging.Error(err))
	}
}

func (c *Controller) emit(event Progress) {
	if c.deps.OnProgress != nil {
		c.deps.OnProgress(event)
	}
}

func (c *Controller) channelConfig() generation.ChannelConfig {
	channel := c.cfg.Channel
	return generation.ChannelConfig{
		ChannelID:     channel.ID,
		Topic:         channel.Topic,
		Country:       channel.Country,
		PresenterAVox: channel.PresenterAVox,
		PresenterBVox: channel.PresenterBVox,
		AspectRatio:   channel.AspectRatio,
		Resolution:    channel.Resolution,
	}
}

func (c *Controller) scriptTTL() time.Duration {
	return hoursOrDefault(c.cfg.Cache.ScriptTTLHours, 24)
}

func (c *Controller) hookTTL() time.Duration {
	return hoursOrDefault(c.cfg.Cache.HookTTLHours, 12)
}

func (c *Controller) metadataTTL() time.Duration {
	return hoursOrDefault(c.cfg.Cache.MetadataTTLHours, 24)
}

func hoursOrDefault(hours, fallback int) time.Duration {
	if hours <= 0 {
		hours = fallback
	}
	return time.Duration(hours) * time.Hour
}
