package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"newsforge/internal/assetindex"
	"newsforge/internal/logging"
	"newsforge/internal/store"
)

func newAssetsCommand(ctx *commandContext) *cobra.Command {
	assetsCmd := &cobra.Command{
		Use:   "assets",
		Short: "Reusable asset utilities",
	}
	assetsCmd.AddCommand(newAssetsPopularCommand(ctx))
	assetsCmd.AddCommand(newAssetsVersionCommand(ctx))
	return assetsCmd
}

func newAssetsPopularCommand(ctx *commandContext) *cobra.Command {
	var assetType string
	var limit int

	cmd := &cobra.Command{
		Use:   "popular",
		Short: "List the most reused assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			parsedType := assetindex.AssetType("")
			if assetType != "" {
				parsed, ok := assetindex.ParseAssetType(assetType)
				if !ok {
					return fmt.Errorf("unknown asset type %q", assetType)
				}
				parsedType = parsed
			}

			st, err := store.Open(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			index := assetindex.New(st, logging.NewNop())
			records, err := index.Popular(cmd.Context(), cfg.Channel.ID, parsedType, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "no assets recorded yet")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, record := range records {
				rows = append(rows, []string{
					shortID(record.ID),
					string(record.Type),
					fmt.Sprintf("%d", record.UseCount),
					record.SceneType,
					record.URL,
				})
			}
			headers := []string{"Asset", "Type", "Uses", "Scene", "URL"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft}
			if isTerminal(out) {
				fmt.Fprintln(out, renderTable(headers, rows, aligns))
			} else {
				printPlain(cmd, headers, rows)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&assetType, "type", "t", "", "Filter by asset type (video, audio, image)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of assets to list")

	return cmd
}

func newAssetsVersionCommand(ctx *commandContext) *cobra.Command {
	var variation string

	cmd := &cobra.Command{
		Use:   "version <asset-id> <new-url>",
		Short: "Derive a new asset version with lineage to the original",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			st, err := store.Open(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			index := assetindex.New(st, logger)
			version, err := index.CreateVersion(cmd.Context(), args[0], args[1], variation)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created version %s of %s\n", version.ID, version.OriginalAssetID)
			return nil
		},
	}

	cmd.Flags().StringVar(&variation, "variation", "", "Label describing how the version differs")

	return cmd
}
