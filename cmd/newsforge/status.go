package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"newsforge/internal/generation"
	"newsforge/internal/production"
	"newsforge/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var checkProviders bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent productions and provider availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			st, err := store.Open(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			jobs, err := st.JobsByChannel(cmd.Context(), cfg.Channel.ID, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintf(out, "no productions for channel %s\n", cfg.Channel.ID)
			} else {
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						shortID(job.ID),
						job.DateKey,
						string(job.Status),
						fmt.Sprintf("%d", job.CurrentStep),
						fmt.Sprintf("%d", len(job.Segments)),
						summarize(job),
					})
				}
				headers := []string{"Job", "Date", "Status", "Step", "Segments", "Detail"}
				aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}
				if isTerminal(out) {
					fmt.Fprintln(out, renderTable(headers, rows, aligns))
				} else {
					printPlain(cmd, headers, rows)
				}
			}

			if checkProviders {
				reportProviders(cmd, ctx)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of productions to list")
	cmd.Flags().BoolVar(&checkProviders, "providers", false, "Check generation provider availability")

	return cmd
}

func reportProviders(cmd *cobra.Command, ctx *commandContext) {
	cfg := ctx.configValue()
	out := cmd.OutOrStdout()
	probe := func(label, baseURL, apiKey string) {
		if strings.TrimSpace(baseURL) == "" {
			fmt.Fprintf(out, "%s: not configured\n", label)
			return
		}
		client := generation.NewClient(baseURL, apiKey, generation.WithName(label), generation.WithTimeout(10*time.Second))
		if client.Available(cmd.Context()) {
			fmt.Fprintf(out, "%s: available\n", label)
		} else {
			fmt.Fprintf(out, "%s: unavailable\n", label)
		}
	}
	probe("primary", cfg.Providers.BaseURL, cfg.Providers.APIKey)
	probe("fallback", cfg.Providers.FallbackBaseURL, cfg.Providers.FallbackAPIKey)
}

func summarize(job *production.Job) string {
	switch job.Status {
	case production.StatusFailed:
		return job.ErrorMessage
	case production.StatusCompleted:
		if job.Metadata != nil {
			return job.Metadata.Title
		}
	}
	return ""
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printPlain(cmd *cobra.Command, headers []string, rows [][]string) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(out, strings.Join(row, "\t"))
	}
}
