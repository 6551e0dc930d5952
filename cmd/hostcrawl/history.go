package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/hostcrawl/internal/config"
	"github.com/nao1215/hostcrawl/internal/database"
	"github.com/nao1215/hostcrawl/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List past runs or the pages saved by one run",
		Long: `History reads the run history database.

Without arguments it lists the most recent runs. With a run id it lists
the pages that run saved, or with --report the full report of that run.

Examples:
  hostcrawl history
  hostcrawl history --limit 5 --markdown
  hostcrawl history 3f0c2a9e-6b1d-4c55-9c0e-8d7f3e2a1b4c --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", 20, "Maximum number of runs to list (0 = all)")
	cmd.Flags().String("history-dir", "", "Directory of the run history database")
	cmd.Flags().BoolP("report", "r", false, "Show the stored run report instead of the saved pages")
	addReportFlags(cmd)
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cmd.Flags().Changed("history-dir") {
		if cfg.HistoryDir, err = cmd.Flags().GetString("history-dir"); err != nil {
			return err
		}
	}
	if cfg.JSONReport && cfg.MarkdownReport {
		return fmt.Errorf("configuration error: %w", config.ErrConflictingReportFormats)
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	setupLogger(cfg)

	stdout := cmd.OutOrStdout()
	if _, err := os.Stat(filepath.Join(cfg.HistoryDir, database.FileName)); errors.Is(err, os.ErrNotExist) {
		_, err := io.WriteString(stdout, "No runs recorded.\n")
		return err
	}

	db, err := database.Open(cfg.HistoryDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if len(args) == 0 {
		runs, err := db.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		return withReportOutput(cfg, stdout, func(w report.Writer) error {
			_, err := w.WriteRuns(runs)
			return err
		})
	}

	runID := args[0]
	if _, err := db.GetRun(ctx, runID); err != nil {
		return err
	}

	showReport, err := cmd.Flags().GetBool("report")
	if err != nil {
		return err
	}
	if showReport {
		rep, err := db.GetRunReport(ctx, runID)
		if err != nil {
			return err
		}
		if rep == nil {
			return fmt.Errorf("run %s has not finished", runID)
		}
		return writeRunReport(cfg, stdout, rep)
	}

	matches, err := db.ListMatches(ctx, runID)
	if err != nil {
		return err
	}
	return withReportOutput(cfg, stdout, func(w report.Writer) error {
		_, err := w.WriteMatches(runID, matches)
		return err
	})
}
