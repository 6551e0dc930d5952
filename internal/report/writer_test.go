package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/hostcrawl/internal/database"
	"github.com/nao1215/hostcrawl/internal/model"
)

// createTestReport creates a report with every section filled in.
func createTestReport() *model.RunReport {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	report := model.NewRunReport("run-123")
	report.StartedAt = start
	report.FinishedAt = start.Add(90 * time.Second)
	report.Crawl = &model.CrawlSummary{
		Seed:           "https://example.com/blog",
		Hostname:       "example.com",
		Pattern:        `post-\d+`,
		State:          model.CrawlStateCompleted,
		PagesProcessed: 10,
		PagesSaved:     4,
		PagesFailed:    1,
		URLsDiscovered: 12,
		StartedAt:      start,
		FinishedAt:     start.Add(80 * time.Second),
	}
	report.Conversion = &model.ConversionSummary{Converted: 4}
	report.Assets = append(report.Assets, model.AssetSummary{Preset: "smileys", Found: 3, Downloaded: 2, Skipped: 1})
	return report
}

func testRuns() []database.RunRecord {
	return []database.RunRecord{{
		ID:             "run-123",
		Seed:           "https://example.com/blog",
		Pattern:        `post-\d+`,
		Hostname:       "example.com",
		State:          model.CrawlStatePageBudgetReached,
		StartedAt:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		PagesProcessed: 5,
		PagesSaved:     2,
	}}
}

func testMatches() []model.MatchRecord {
	return []model.MatchRecord{{
		URL:     "https://example.com/blog/post-42",
		File:    "example.com/post_42.html",
		Matches: []string{"post-42"},
	}}
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes every section", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"HOSTCRAWL REPORT",
			"run-123",
			"Status:   Complete",
			"https://example.com/blog",
			"Saved:      4",
			"Converted: 4",
			"[smileys] found 3, downloaded 2, skipped 1, failed 0",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
		if strings.Contains(output, "ERRORS") {
			t.Error("did not expect an errors section")
		}
		if strings.Contains(output, "Duration:") {
			t.Error("duration should only appear in verbose mode")
		}
	})

	t.Run("verbose adds timing", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestReport()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "Duration: 1m30s") {
			t.Errorf("expected run duration in output\n%s", buf.String())
		}
	})

	t.Run("shows errors and cancellation", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.AddError(errors.New("crawl failed: context canceled"))
		report.Cancelled = true

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
			t.Fatal(err)
		}
		output := buf.String()
		if !strings.Contains(output, "Cancelled (partial results)") {
			t.Error("expected cancelled status")
		}
		if !strings.Contains(output, "* crawl failed: context canceled") {
			t.Error("expected error line")
		}
	})

	t.Run("omits sections that did not run", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(model.NewRunReport("r")); err != nil {
			t.Fatal(err)
		}
		for _, absent := range []string{"CRAWL", "CONVERSION", "ASSETS"} {
			if strings.Contains(buf.String(), "\n"+absent+"\n") {
				t.Errorf("did not expect %s section", absent)
			}
		}
	})

	t.Run("writes runs and matches", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)
		if _, err := w.WriteRuns(testRuns()); err != nil {
			t.Fatal(err)
		}
		if _, err := w.WriteMatches("run-123", testMatches()); err != nil {
			t.Fatal(err)
		}
		output := buf.String()
		for _, want := range []string{"RUN ID", "page_budget_reached", "Run run-123: 1 saved page(s)", "example.com/post_42.html"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("empty history", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteRuns(nil); err != nil {
			t.Fatal(err)
		}
		if buf.String() != "No runs recorded.\n" {
			t.Errorf("got %q", buf.String())
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes valid compact JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatal(err)
		}

		var decoded model.RunReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.RunID != "run-123" || decoded.Crawl == nil || decoded.Crawl.PagesSaved != 4 {
			t.Errorf("decoded = %+v", decoded)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("compact output should be a single line")
		}
	})

	t.Run("pretty print indents", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestReport()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "\n  \"run_id\": \"run-123\"") {
			t.Errorf("expected indented output\n%s", buf.String())
		}
	})

	t.Run("runs listing", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteRuns(testRuns()); err != nil {
			t.Fatal(err)
		}
		var decoded []map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded) != 1 || decoded[0]["state"] != "page_budget_reached" {
			t.Errorf("decoded = %v", decoded)
		}
		if _, ok := decoded[0]["finished_at"]; ok {
			t.Error("unfinished run should omit finished_at")
		}
	})

	t.Run("empty matches encode as an array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteMatches("r", nil); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), `"matches":[]`) {
			t.Errorf("got %s", buf.String())
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables and chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatal(err)
		}
		output := buf.String()
		for _, want := range []string{
			"# hostcrawl Report",
			"## Crawl",
			"## Conversion",
			"## Assets",
			"```mermaid",
			"Saved",
			"smileys",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "## Errors") {
			t.Error("did not expect errors section")
		}
	})

	t.Run("cancelled run gets a warning", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Cancelled = true

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "[!WARNING]") {
			t.Errorf("expected warning alert\n%s", buf.String())
		}
	})

	t.Run("history tables", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		if _, err := w.WriteRuns(testRuns()); err != nil {
			t.Fatal(err)
		}
		if _, err := w.WriteMatches("run-123", testMatches()); err != nil {
			t.Fatal(err)
		}
		output := buf.String()
		for _, want := range []string{"# hostcrawl History", "`run-123`", "# Run run-123", "post-42"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})
}

func TestWritersImplementInterface(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	for _, w := range []Writer{NewSimpleWriter(&buf), NewJSONWriter(&buf), NewMarkdownWriter(&buf)} {
		if _, err := w.Write(createTestReport()); err != nil {
			t.Errorf("%T: %v", w, err)
		}
	}
}
