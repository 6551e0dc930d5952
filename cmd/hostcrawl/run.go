package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/hostcrawl/internal/config"
	"github.com/nao1215/hostcrawl/internal/pipeline"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [prefix-url]",
		Short: "Crawl, convert and download assets in one go",
		Long: `Run crawls the site like the crawl command, converts the saved pages to
JSON and downloads the assets they reference. A failing stage is recorded
in the report and the next stage still runs.

Example:
  hostcrawl run https://example.blogsky.com/ --pattern 'post-\d+' --presets smileys`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRunCmd,
	}

	addCrawlFlags(cmd)
	addAssetFlags(cmd)
	cmd.Flags().StringSlice("presets", nil, "Asset presets to download (default: all)")
	cmd.Flags().Bool("skip-assets", false, "Do not download assets")
	addReportFlags(cmd)
	return cmd
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadCrawlConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := applyAssetFlags(cmd, cfg); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.ValidateCommon(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	names, err := cmd.Flags().GetStringSlice("presets")
	if err != nil {
		return err
	}
	presets, err := resolvePresets(names)
	if err != nil {
		return err
	}
	skipAssets, err := cmd.Flags().GetBool("skip-assets")
	if err != nil {
		return err
	}

	logger := setupLogger(cfg)
	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	more := func(cfg *config.Config, logger *slog.Logger) []pipeline.Step {
		steps := convertSteps(cfg, logger)
		if !skipAssets {
			steps = append(steps, assetSteps(presets)(cfg, logger)...)
		}
		return steps
	}
	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout(), more)
}
