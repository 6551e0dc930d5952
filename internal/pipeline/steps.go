package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/hostcrawl/internal/model"
)

// Crawler runs one crawl from a prefix URL.
type Crawler interface {
	Crawl(ctx context.Context, prefix string) (*model.CrawlSummary, error)
}

// Converter turns saved HTML pages into JSON documents.
type Converter interface {
	Run(ctx context.Context) (*model.ConversionSummary, error)
}

// AssetFetcher downloads the assets of one preset.
type AssetFetcher interface {
	Run(ctx context.Context) (*model.AssetSummary, error)
}

// CrawlStep crawls the site under prefix.
type CrawlStep struct {
	crawler Crawler
	prefix  string
}

// NewCrawlStep creates a CrawlStep.
func NewCrawlStep(crawler Crawler, prefix string) *CrawlStep {
	return &CrawlStep{crawler: crawler, prefix: prefix}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do runs the crawl and stores its summary, even a partial one.
func (s *CrawlStep) Do(ctx context.Context, report *model.RunReport) error {
	summary, err := s.crawler.Crawl(ctx, s.prefix)
	if summary != nil {
		report.Crawl = summary
	}
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	return nil
}

// ConvertStep converts every saved page to JSON.
type ConvertStep struct {
	converter Converter
}

// NewConvertStep creates a ConvertStep.
func NewConvertStep(converter Converter) *ConvertStep {
	return &ConvertStep{converter: converter}
}

// Name returns the step name.
func (s *ConvertStep) Name() string {
	return "convert"
}

// Do runs the conversion. Per-file failures only show up as counts.
func (s *ConvertStep) Do(ctx context.Context, report *model.RunReport) error {
	summary, err := s.converter.Run(ctx)
	if summary != nil {
		report.Conversion = summary
	}
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}
	return nil
}

// AssetStep downloads assets for one or more presets in order.
type AssetStep struct {
	fetchers []AssetFetcher
	logger   *slog.Logger
}

// NewAssetStep creates an AssetStep.
func NewAssetStep(logger *slog.Logger, fetchers ...AssetFetcher) *AssetStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssetStep{fetchers: fetchers, logger: logger}
}

// Name returns the step name.
func (s *AssetStep) Name() string {
	return "assets"
}

// Do runs each fetcher. A failing preset does not stop the next one,
// but cancellation does.
func (s *AssetStep) Do(ctx context.Context, report *model.RunReport) error {
	var firstErr error
	for _, f := range s.fetchers {
		summary, err := f.Run(ctx)
		if summary != nil {
			report.Assets = append(report.Assets, *summary)
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return fmt.Errorf("asset download interrupted: %w", err)
		}
		s.logger.Warn("asset preset failed", "error", err)
		if firstErr == nil {
			firstErr = fmt.Errorf("asset download failed: %w", err)
		}
	}
	return firstErr
}
