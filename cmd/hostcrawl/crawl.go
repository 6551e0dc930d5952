package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/nao1215/hostcrawl/internal/config"
	"github.com/nao1215/hostcrawl/internal/crawler"
	"github.com/nao1215/hostcrawl/internal/database"
	"github.com/nao1215/hostcrawl/internal/model"
	"github.com/nao1215/hostcrawl/internal/pipeline"
	"github.com/nao1215/hostcrawl/internal/storage"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [prefix-url]",
		Short: "Crawl one hostname and save pages whose URL matches a pattern",
		Long: `Crawl starts at the prefix URL and follows links breadth-first, staying on
the prefix's hostname. Every fetched page whose URL matches --pattern is
saved under <output-dir>/<hostname>/ and recorded in <output-dir>/matches.jsonl.

The prefix and pattern can also come from the config file or from
CRAWL_URL_PREFIX and CRAWL_MATCH_REGEX.

Examples:
  # Save every post page of a blog
  hostcrawl crawl https://example.blogsky.com/ --pattern 'post-\d+'

  # Stop after 500 fetches and use four workers
  hostcrawl crawl https://example.blogsky.com/ -p 'post-\d+' -n 500 -w 4

  # Send a session cookie
  hostcrawl crawl https://example.com/ -p '/article/' --cookie 'sid=abc'`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCrawlCmd,
	}

	addCrawlFlags(cmd)
	addReportFlags(cmd)
	return cmd
}

// addCrawlFlags registers the flags shared by crawl and run.
func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("pattern", "p", "", "Regular expression matched against each fetched URL")
	cmd.Flags().IntP("max-pages", "n", config.DefaultMaxPages, "Maximum number of fetches (0 = unlimited)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Timeout for each request")
	cmd.Flags().StringP("output-dir", "d", config.DefaultOutputDir, "Directory for saved pages and the match log")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers, "Number of concurrent fetches")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay, "Minimum delay between requests")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent, "User-Agent header")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize, "Maximum response body size in bytes")
	cmd.Flags().StringArrayP("header", "H", nil, `Extra request header "Name: value" (repeatable)`)
	cmd.Flags().String("cookie", "", "Cookie header value")
	cmd.Flags().Bool("log-discovered", false, "Log every discovered link at debug level")
	cmd.Flags().String("history-dir", "", "Directory of the run history database")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the history database")
}

// applyCrawlFlags copies explicitly set crawl flags onto cfg.
func applyCrawlFlags(cmd *cobra.Command, args []string, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if len(args) > 0 {
		cfg.SeedURL = args[0]
	}
	if flags.Changed("pattern") {
		if cfg.MatchPattern, err = flags.GetString("pattern"); err != nil {
			return err
		}
	}
	if flags.Changed("max-pages") {
		if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
			return err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("workers") {
		if cfg.Workers, err = flags.GetInt("workers"); err != nil {
			return err
		}
	}
	if flags.Changed("delay") {
		if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
			return err
		}
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return err
		}
	}
	if flags.Changed("max-body-size") {
		if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
			return err
		}
	}
	if flags.Changed("header") {
		values, err := flags.GetStringArray("header")
		if err != nil {
			return err
		}
		if cfg.Headers, err = parseHeaders(values); err != nil {
			return err
		}
	}
	if flags.Changed("cookie") {
		if cfg.Cookie, err = flags.GetString("cookie"); err != nil {
			return err
		}
	}
	if flags.Changed("log-discovered") {
		if cfg.LogDiscovered, err = flags.GetBool("log-discovered"); err != nil {
			return err
		}
	}
	if flags.Changed("history-dir") {
		if cfg.HistoryDir, err = flags.GetString("history-dir"); err != nil {
			return err
		}
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return err
	}
	if noHistory {
		cfg.SaveHistory = false
	}
	return nil
}

// loadCrawlConfig loads and validates the configuration of a crawling command.
func loadCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if err := applyCrawlFlags(cmd, args, cfg); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadCrawlConfig(cmd, args)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout(), nil)
}

// extraSteps builds the steps that run after the crawl, once the
// pipeline's logger is known.
type extraSteps func(cfg *config.Config, logger *slog.Logger) []pipeline.Step

// runCrawl executes a crawl pipeline, records it in history and writes the
// run report. more appends steps after the crawl.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer, more extraSteps) error {
	runID := database.NewRunID()
	rep := model.NewRunReport(runID)

	files, err := storage.NewFileSink(cfg.OutputDir, storage.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to prepare output directory: %w", err)
	}
	var sink crawler.Sink = files

	var history *database.HistoryDB
	if cfg.SaveHistory {
		history, err = database.Open(cfg.HistoryDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer history.Close()

		if err := history.StartRun(ctx, runID, cfg.SeedURL, cfg.MatchPattern, rep.StartedAt); err != nil {
			return err
		}
		sink = newRecordingSink(ctx, files, history, runID, logger)
		logger.Debug("recording run history", "run_id", runID, "path", history.Path())
	}

	spider, err := newSpider(cfg, sink, logger)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	p := pipeline.New(pipeline.WithLogger(logger), pipeline.WithContinueOnError(true))
	p.AddStep(pipeline.NewCrawlStep(spider, cfg.SeedURL))
	if more != nil {
		p.AddSteps(more(cfg, logger)...)
	}

	runErr := p.Execute(ctx, rep)

	if history != nil {
		if err := history.FinishRun(context.WithoutCancel(ctx), rep); err != nil {
			logger.Error("failed to record run in history", "run_id", runID, "error", err)
		}
	}
	if err := writeRunReport(cfg, stdout, rep); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return runError(runErr, rep)
}

// newSpider builds a Spider from the configuration.
func newSpider(cfg *config.Config, sink crawler.Sink, logger *slog.Logger) (*crawler.Spider, error) {
	matcher, err := crawler.CompilePattern(cfg.MatchPattern)
	if err != nil {
		return nil, err
	}
	_, hostname, err := crawler.NormalizePrefix(cfg.SeedURL)
	if err != nil {
		return nil, err
	}

	return crawler.NewSpider(&http.Client{}, matcher, sink,
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithHeaders(cfg.RequestHeaders(hostname)),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithDelay(cfg.CrawlDelay),
		crawler.WithLogger(logger),
		crawler.WithLogDiscovered(cfg.LogDiscovered),
	), nil
}
