package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/hostcrawl/internal/database"
	"github.com/nao1215/hostcrawl/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs plain text for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose adds timing details.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables additional detail in the output.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to output.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run report.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	if report.Crawl != nil {
		w.writeCrawl(&sb, report.Crawl)
	}
	if report.Conversion != nil {
		section(&sb, "CONVERSION")
		fmt.Fprintf(&sb, "  Converted: %d\n", report.Conversion.Converted)
		fmt.Fprintf(&sb, "  Failed:    %d\n\n", report.Conversion.Failed)
	}
	if len(report.Assets) > 0 {
		section(&sb, "ASSETS")
		for _, a := range report.Assets {
			fmt.Fprintf(&sb, "  [%s] found %d, downloaded %d, skipped %d, failed %d\n",
				a.Preset, a.Found, a.Downloaded, a.Skipped, a.Failed)
		}
		sb.WriteString("\n")
	}
	if report.HasErrors() {
		section(&sb, "ERRORS")
		for _, e := range report.Errors {
			fmt.Fprintf(&sb, "  * %s\n", e)
		}
		sb.WriteString("\n")
	}
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n                         HOSTCRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Run ID:   %s\n", report.RunID)
	fmt.Fprintf(sb, "Started:  %s\n", formatTime(report.StartedAt))
	if w.verbose {
		fmt.Fprintf(sb, "Finished: %s\n", formatTime(report.FinishedAt))
		fmt.Fprintf(sb, "Duration: %s\n", formatDuration(report.StartedAt, report.FinishedAt))
	}
	fmt.Fprintf(sb, "Status:   %s\n\n", statusText(report))
}

func (w *SimpleWriter) writeCrawl(sb *strings.Builder, c *model.CrawlSummary) {
	section(sb, "CRAWL")
	fmt.Fprintf(sb, "  Seed:       %s\n", c.Seed)
	fmt.Fprintf(sb, "  Hostname:   %s\n", c.Hostname)
	fmt.Fprintf(sb, "  Pattern:    %s\n", c.Pattern)
	fmt.Fprintf(sb, "  State:      %s\n", c.State)
	fmt.Fprintf(sb, "  Processed:  %d\n", c.PagesProcessed)
	fmt.Fprintf(sb, "  Saved:      %d\n", c.PagesSaved)
	fmt.Fprintf(sb, "  Failed:     %d\n", c.PagesFailed)
	fmt.Fprintf(sb, "  Discovered: %d\n", c.URLsDiscovered)
	if w.verbose {
		fmt.Fprintf(sb, "  Duration:   %s\n", c.Duration().Round(1e6))
	}
	sb.WriteString("\n")
}

// WriteRuns outputs one line per stored run.
func (w *SimpleWriter) WriteRuns(runs []database.RunRecord) (int, error) {
	if len(runs) == 0 {
		return io.WriteString(w.output, "No runs recorded.\n")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-36s  %-23s  %-19s  %6s  %6s  %s\n", "RUN ID", "STARTED", "STATE", "PAGES", "SAVED", "SEED")
	for _, r := range runs {
		fmt.Fprintf(&sb, "%-36s  %-23s  %-19s  %6d  %6d  %s\n",
			r.ID, formatTime(r.StartedAt), r.State, r.PagesProcessed, r.PagesSaved, r.Seed)
	}
	return io.WriteString(w.output, sb.String())
}

// WriteMatches outputs one line per match record.
func (w *SimpleWriter) WriteMatches(runID string, matches []model.MatchRecord) (int, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Run %s: %d saved page(s)\n", runID, len(matches))
	for _, m := range matches {
		fmt.Fprintf(&sb, "  %s\n    file:    %s\n    matches: %s\n", m.URL, m.File, strings.Join(m.Matches, ", "))
	}
	return io.WriteString(w.output, sb.String())
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}
