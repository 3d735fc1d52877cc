package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"newsforge/internal/assetindex"
	"newsforge/internal/blobstore"
	"newsforge/internal/config"
	"newsforge/internal/contentcache"
	"newsforge/internal/generation"
	"newsforge/internal/pipeline"
	"newsforge/internal/production"
	"newsforge/internal/store"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var selectionPath string
	var jobID string
	var dateKey string
	var userID string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Produce a news brief from a selection of items",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			selection, err := loadSelection(selectionPath)
			if err != nil {
				return err
			}
			if dateKey == "" {
				dateKey = time.Now().UTC().Format("2006-01-02")
			}
			if jobID == "" {
				jobID = uuid.NewString()
			}

			job := &production.Job{
				ID:        jobID,
				ChannelID: cfg.Channel.ID,
				UserID:    userID,
				DateKey:   dateKey,
			}
			return produce(cmd, ctx, job, selection)
		},
	}

	cmd.Flags().StringVarP(&selectionPath, "selection", "s", "", "Path to a JSON file with the selected news items")
	cmd.Flags().StringVar(&jobID, "job", "", "Job id to use (defaults to a new id)")
	cmd.Flags().StringVar(&dateKey, "date", "", "Date key for the production (defaults to today, UTC)")
	cmd.Flags().StringVar(&userID, "user", "", "User id to attribute the production to")
	_ = cmd.MarkFlagRequired("selection")

	return cmd
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	var selectionPath string

	cmd := &cobra.Command{
		Use:   "resume <job-id>",
		Short: "Resume an interrupted or failed production",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			st, err := store.Open(cfg)
			if err != nil {
				return err
			}
			job, err := st.GetJob(cmd.Context(), args[0])
			closeErr := st.Close()
			if err != nil {
				return err
			}
			if closeErr != nil {
				return closeErr
			}
			if job == nil {
				return fmt.Errorf("job %s not found", args[0])
			}

			var selection []generation.Item
			if selectionPath != "" {
				selection, err = loadSelection(selectionPath)
				if err != nil {
					return err
				}
			}
			return produce(cmd, ctx, job, selection)
		},
	}

	cmd.Flags().StringVarP(&selectionPath, "selection", "s", "", "Optional selection file; omitted means the job's stored selection")

	return cmd
}

// produce wires the pipeline and runs one job under the single-instance lock.
func produce(cmd *cobra.Command, ctx *commandContext, job *production.Job, selection []generation.Item) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	lock := flock.New(filepath.Join(cfg.Paths.DataDir, "newsforge.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return errors.New("another newsforge production is already running")
	}
	defer func() {
		_ = lock.Unlock()
	}()

	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	blobs, err := blobstore.NewLocal(cfg.Paths.MediaDir)
	if err != nil {
		return err
	}

	primary := generation.NewClient(cfg.Providers.BaseURL, cfg.Providers.APIKey,
		generation.WithName("primary"),
		generation.WithTimeout(providerTimeout(cfg)))
	var fallback generation.VideoProvider
	if cfg.Providers.FallbackBaseURL != "" {
		fallback = generation.NewClient(cfg.Providers.FallbackBaseURL, cfg.Providers.FallbackAPIKey,
			generation.WithName("fallback"),
			generation.WithTimeout(providerTimeout(cfg)))
	}

	controller := pipeline.New(cfg, pipeline.Deps{
		Jobs: st,
		Cache: contentcache.New(cfg.Channel.ID, st, logger, contentcache.Options{
			FuzzyThreshold:        cfg.Cache.FuzzyThreshold,
			FuzzyReuseThreshold:   cfg.Cache.FuzzyReuseThreshold,
			DurableCandidateLimit: cfg.Cache.DurableCandidateLimit,
		}),
		Assets:    assetindex.New(st, logger),
		Catalog:   st,
		Generator: primary,
		Videos:    generation.NewFallbackVideoProvider(primary, fallback, logger),
		Blobs:     blobs,
		Logger:    logger,
		OnProgress: func(p pipeline.Progress) {
			fmt.Fprintf(cmd.OutOrStdout(), "[%d/%d] %s\n", p.StepIndex, p.StepCount, p.Label)
		},
	})

	finished, err := controller.StartOrResume(cmd.Context(), job, selection)
	if err != nil {
		return fmt.Errorf("production %s failed: %w", job.ID, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "production %s completed: %d segments", finished.ID, len(finished.Segments))
	if finished.Metadata != nil {
		fmt.Fprintf(cmd.OutOrStdout(), ", title %q", finished.Metadata.Title)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

func providerTimeout(cfg *config.Config) time.Duration {
	if cfg.Providers.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(cfg.Providers.TimeoutSeconds) * time.Second
}

// loadSelection reads the news item selection from a JSON file: either a bare
// array of items or an object with an "items" field.
func loadSelection(path string) ([]generation.Item, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("selection file required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read selection: %w", err)
	}

	var items []generation.Item
	if err := json.Unmarshal(data, &items); err != nil {
		var wrapped struct {
			Items []generation.Item `json:"items"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("parse selection: %w", err)
		}
		items = wrapped.Items
	}
	if len(items) == 0 {
		return nil, errors.New("selection file contains no items")
	}
	for i, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			return nil, fmt.Errorf("selection item %d missing id", i)
		}
	}
	return items, nil
}
