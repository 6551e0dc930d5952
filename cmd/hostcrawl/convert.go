package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/hostcrawl/internal/config"
	"github.com/nao1215/hostcrawl/internal/convert"
	"github.com/nao1215/hostcrawl/internal/database"
	"github.com/nao1215/hostcrawl/internal/model"
	"github.com/nao1215/hostcrawl/internal/pipeline"
)

// NewConvertCmd creates the convert command.
func NewConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert saved pages to structured JSON",
		Long: `Convert parses every saved .html page under the output directory and
writes a JSON document next to it in a json/ subdirectory. Pages that fail
to parse are counted and logged; they never stop the conversion.

Example:
  hostcrawl convert -d out`,
		Args: cobra.NoArgs,
		RunE: runConvertCmd,
	}

	cmd.Flags().StringP("output-dir", "d", config.DefaultOutputDir, "Directory holding the saved pages")
	addReportFlags(cmd)
	return cmd
}

func runConvertCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.ValidateCommon(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	logger := setupLogger(cfg)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return runSteps(ctx, cfg, logger, cmd.OutOrStdout(), convertSteps)
}

// convertSteps returns the conversion step for cfg.
func convertSteps(cfg *config.Config, logger *slog.Logger) []pipeline.Step {
	c := convert.NewConverter(cfg.OutputDir, convert.WithLogger(logger))
	return []pipeline.Step{pipeline.NewConvertStep(c)}
}

// runSteps executes steps that do not crawl and writes the run report.
func runSteps(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer, steps extraSteps) error {
	rep := model.NewRunReport(database.NewRunID())

	p := pipeline.New(pipeline.WithLogger(logger), pipeline.WithContinueOnError(true))
	p.AddSteps(steps(cfg, logger)...)
	runErr := p.Execute(ctx, rep)

	if err := writeRunReport(cfg, stdout, rep); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return runError(runErr, rep)
}
