package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/hostcrawl/internal/model"
)

type fakeCrawler struct {
	summary *model.CrawlSummary
	err     error
	prefix  string
}

func (f *fakeCrawler) Crawl(_ context.Context, prefix string) (*model.CrawlSummary, error) {
	f.prefix = prefix
	return f.summary, f.err
}

type fakeConverter struct {
	summary *model.ConversionSummary
	err     error
}

func (f *fakeConverter) Run(context.Context) (*model.ConversionSummary, error) {
	return f.summary, f.err
}

type fakeFetcher struct {
	summary *model.AssetSummary
	err     error
	calls   int
}

func (f *fakeFetcher) Run(context.Context) (*model.AssetSummary, error) {
	f.calls++
	return f.summary, f.err
}

func TestCrawlStep(t *testing.T) {
	t.Parallel()

	t.Run("stores the summary", func(t *testing.T) {
		t.Parallel()

		c := &fakeCrawler{summary: &model.CrawlSummary{PagesSaved: 2, State: model.CrawlStateCompleted}}
		step := NewCrawlStep(c, "https://example.com/blog")
		report := model.NewRunReport("r")

		if err := step.Do(context.Background(), report); err != nil {
			t.Fatal(err)
		}
		if c.prefix != "https://example.com/blog" {
			t.Errorf("prefix = %q", c.prefix)
		}
		if report.Crawl == nil || report.Crawl.PagesSaved != 2 {
			t.Errorf("Crawl = %+v", report.Crawl)
		}
		if step.Name() != "crawl" {
			t.Errorf("Name() = %q", step.Name())
		}
	})

	t.Run("keeps a partial summary on cancellation", func(t *testing.T) {
		t.Parallel()

		c := &fakeCrawler{
			summary: &model.CrawlSummary{State: model.CrawlStateCancelled, PagesProcessed: 1},
			err:     context.Canceled,
		}
		report := model.NewRunReport("r")
		err := NewCrawlStep(c, "https://example.com").Do(context.Background(), report)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want wrapped context.Canceled", err)
		}
		if report.Crawl == nil || report.Crawl.State != model.CrawlStateCancelled {
			t.Errorf("Crawl = %+v", report.Crawl)
		}
	})
}

func TestConvertStep(t *testing.T) {
	t.Parallel()

	report := model.NewRunReport("r")
	step := NewConvertStep(&fakeConverter{summary: &model.ConversionSummary{Converted: 3, Failed: 1}})
	if err := step.Do(context.Background(), report); err != nil {
		t.Fatal(err)
	}
	if report.Conversion == nil || report.Conversion.Converted != 3 || report.Conversion.Failed != 1 {
		t.Errorf("Conversion = %+v", report.Conversion)
	}

	sentinel := errors.New("no root")
	err := NewConvertStep(&fakeConverter{err: sentinel}).Do(context.Background(), model.NewRunReport("r"))
	if !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want wrapped sentinel", err)
	}
}

func TestAssetStep(t *testing.T) {
	t.Parallel()

	t.Run("runs every preset and appends summaries", func(t *testing.T) {
		t.Parallel()

		sentinel := errors.New("missing root")
		failing := &fakeFetcher{err: sentinel}
		ok := &fakeFetcher{summary: &model.AssetSummary{Preset: "smileys", Downloaded: 4}}

		report := model.NewRunReport("r")
		err := NewAssetStep(quietLogger(), failing, ok).Do(context.Background(), report)
		if !errors.Is(err, sentinel) {
			t.Errorf("err = %v, want wrapped sentinel", err)
		}
		if ok.calls != 1 {
			t.Error("second preset should still run")
		}
		if len(report.Assets) != 1 || report.Assets[0].Preset != "smileys" {
			t.Errorf("Assets = %+v", report.Assets)
		}
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		first := &fakeFetcher{summary: &model.AssetSummary{Preset: "picofile"}, err: context.Canceled}
		second := &fakeFetcher{}

		report := model.NewRunReport("r")
		err := NewAssetStep(quietLogger(), first, second).Do(ctx, report)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
		if second.calls != 0 {
			t.Error("second preset should not run after cancellation")
		}
		if len(report.Assets) != 1 {
			t.Errorf("partial summary not kept: %+v", report.Assets)
		}
	})
}
