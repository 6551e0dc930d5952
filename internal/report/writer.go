package report

import (
	"io"
	"time"

	"github.com/nao1215/hostcrawl/internal/database"
	"github.com/nao1215/hostcrawl/internal/model"
)

// timeLayout is used for every timestamp in text and markdown output.
const timeLayout = "2006-01-02 15:04:05 MST"

// Writer renders run reports and history listings.
type Writer interface {
	// Write outputs the report of one run.
	Write(report *model.RunReport) (int, error)

	// WriteRuns outputs a listing of stored runs, newest first.
	WriteRuns(runs []database.RunRecord) (int, error)

	// WriteMatches outputs the match records of one stored run.
	WriteMatches(runID string, matches []model.MatchRecord) (int, error)
}

// baseWriter holds the output destination shared by every writer.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusText describes how a run ended.
func statusText(report *model.RunReport) string {
	switch {
	case report.Cancelled:
		return "Cancelled (partial results)"
	case report.HasErrors():
		return "Finished with errors"
	default:
		return "Complete"
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(timeLayout)
}

func formatDuration(start, end time.Time) string {
	if start.IsZero() || end.IsZero() {
		return "-"
	}
	return end.Sub(start).Round(time.Millisecond).String()
}
