package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/hostcrawl/internal/assets"
	"github.com/nao1215/hostcrawl/internal/config"
	"github.com/nao1215/hostcrawl/internal/pipeline"
)

// NewAssetsCmd creates the assets command.
func NewAssetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets [preset...]",
		Short: "Download assets referenced by converted documents",
		Long: fmt.Sprintf(`Assets scans every JSON document under the output directory for asset
URLs and downloads the ones not already on disk.

Available presets: %s (default: all).

Examples:
  # Download every preset
  hostcrawl assets

  # Only Blogsky smileys, eight downloads at a time
  hostcrawl assets smileys --concurrency 8`, strings.Join(assets.PresetNames(), ", ")),
		RunE: runAssetsCmd,
	}

	cmd.Flags().StringP("output-dir", "d", config.DefaultOutputDir, "Directory holding the converted documents")
	addAssetFlags(cmd)
	addReportFlags(cmd)
	return cmd
}

// addAssetFlags registers the flags shared by assets and run.
func addAssetFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("asset-timeout", config.DefaultAssetTimeout, "Timeout for each asset download")
	cmd.Flags().Int("concurrency", config.DefaultAssetConcurrency, "Number of parallel asset downloads")
}

func applyAssetFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cmd.Flags().Changed("asset-timeout") {
		if cfg.AssetTimeout, err = cmd.Flags().GetDuration("asset-timeout"); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("concurrency") {
		if cfg.AssetConcurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
			return err
		}
	}
	return nil
}

// resolvePresets maps preset names to presets. No names means all.
func resolvePresets(names []string) ([]assets.Preset, error) {
	if len(names) == 0 {
		return assets.Presets(), nil
	}
	presets := make([]assets.Preset, 0, len(names))
	for _, name := range names {
		p, err := assets.PresetByName(name)
		if err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}
	return presets, nil
}

func runAssetsCmd(cmd *cobra.Command, args []string) error {
	presets, err := resolvePresets(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := applyAssetFlags(cmd, cfg); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.ValidateCommon(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	logger := setupLogger(cfg)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return runSteps(ctx, cfg, logger, cmd.OutOrStdout(), assetSteps(presets))
}

// assetSteps returns a builder for one asset step covering presets.
func assetSteps(presets []assets.Preset) extraSteps {
	return func(cfg *config.Config, logger *slog.Logger) []pipeline.Step {
		client := &http.Client{}
		fetchers := make([]pipeline.AssetFetcher, 0, len(presets))
		for _, p := range presets {
			fetchers = append(fetchers, assets.NewDownloader(cfg.OutputDir, p,
				assets.WithClient(client),
				assets.WithTimeout(cfg.AssetTimeout),
				assets.WithConcurrency(cfg.AssetConcurrency),
				assets.WithLogger(logger),
			))
		}
		return []pipeline.Step{pipeline.NewAssetStep(logger, fetchers...)}
	}
}
