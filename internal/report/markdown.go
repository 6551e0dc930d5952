package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/hostcrawl/internal/database"
	"github.com/nao1215/hostcrawl/internal/model"
)

// MarkdownWriter outputs GitHub-flavored markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to output.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the run report.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("hostcrawl Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + report.RunID + "`"},
			{"Started", formatTime(report.StartedAt)},
			{"Duration", formatDuration(report.StartedAt, report.FinishedAt)},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")
	w.writeAlert(md, report)

	if report.Crawl != nil {
		w.writeCrawl(md, report.Crawl)
	}
	if report.Conversion != nil {
		md.H2("Conversion")
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Converted", "Failed"},
			Rows: [][]string{{
				strconv.Itoa(report.Conversion.Converted),
				strconv.Itoa(report.Conversion.Failed),
			}},
		})
		md.PlainText("")
	}
	if len(report.Assets) > 0 {
		w.writeAssets(md, report.Assets)
	}
	if report.HasErrors() {
		md.H2("Errors")
		md.PlainText("")
		md.BulletList(report.Errors...)
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.RunReport) {
	switch {
	case report.Cancelled:
		md.Warning("The run was interrupted. Counts cover only the work finished before cancellation.")
	case report.HasErrors():
		md.Cautionf("%d step(s) failed. See the Errors section.", len(report.Errors))
	case report.Crawl != nil && report.Crawl.State == model.CrawlStatePageBudgetReached:
		md.Importantf("The page budget stopped the crawl after %d page(s) with URLs still queued.", report.Crawl.PagesProcessed)
	default:
		md.Tip("Run finished without errors.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeCrawl(md *markdown.Markdown, c *model.CrawlSummary) {
	md.H2("Crawl")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed", c.Seed},
			{"Hostname", c.Hostname},
			{"Pattern", "`" + c.Pattern + "`"},
			{"State", string(c.State)},
			{"Pages processed", strconv.Itoa(c.PagesProcessed)},
			{"Pages saved", strconv.Itoa(c.PagesSaved)},
			{"Pages failed", strconv.Itoa(c.PagesFailed)},
			{"URLs discovered", strconv.Itoa(c.URLsDiscovered)},
		},
	})
	md.PlainText("")

	if c.PagesProcessed > 0 {
		w.writePieChart(md, c)
	}
}

// writePieChart shows how the processed pages split up.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, c *model.CrawlSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Processed pages"),
		piechart.WithShowData(true),
	)
	skipped := c.PagesProcessed - c.PagesSaved - c.PagesFailed
	if c.PagesSaved > 0 {
		chart.LabelAndIntValue("Saved", uint64(c.PagesSaved))
	}
	if c.PagesFailed > 0 {
		chart.LabelAndIntValue("Failed", uint64(c.PagesFailed))
	}
	if skipped > 0 {
		chart.LabelAndIntValue("Not matched", uint64(skipped))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAssets(md *markdown.Markdown, assets []model.AssetSummary) {
	md.H2("Assets")
	md.PlainText("")
	rows := make([][]string, 0, len(assets))
	for _, a := range assets {
		rows = append(rows, []string{
			a.Preset,
			strconv.Itoa(a.Found),
			strconv.Itoa(a.Downloaded),
			strconv.Itoa(a.Skipped),
			strconv.Itoa(a.Failed),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Preset", "Found", "Downloaded", "Skipped", "Failed"},
		Rows:   rows,
	})
	md.PlainText("")
}

// WriteRuns outputs the runs as a table.
func (w *MarkdownWriter) WriteRuns(runs []database.RunRecord) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("hostcrawl History")
	md.PlainText("")

	if len(runs) == 0 {
		md.PlainText("No runs recorded.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			"`" + r.ID + "`",
			formatTime(r.StartedAt),
			string(r.State),
			strconv.Itoa(r.PagesProcessed),
			strconv.Itoa(r.PagesSaved),
			r.Seed,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Run ID", "Started", "State", "Pages", "Saved", "Seed"},
		Rows:   rows,
	})
	return len(md.String()), md.Build()
}

// WriteMatches outputs the matches of one run as a table.
func (w *MarkdownWriter) WriteMatches(runID string, matches []model.MatchRecord) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("Run " + runID)
	md.PlainText("")

	if len(matches) == 0 {
		md.PlainText("No pages were saved.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, []string{m.URL, "`" + m.File + "`", strings.Join(m.Matches, ", ")})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "File", "Matches"},
		Rows:   rows,
	})
	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by [hostcrawl](https://github.com/nao1215/hostcrawl)*")
}
