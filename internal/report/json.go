package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/hostcrawl/internal/database"
	"github.com/nao1215/hostcrawl/internal/model"
)

// JSONWriter outputs reports as JSON for tool integration.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output with the given prefix and indent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables indented output with two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to output.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run report.
func (w *JSONWriter) Write(report *model.RunReport) (int, error) {
	return w.writeJSON(report)
}

// runJSON is the JSON shape of a stored run.
type runJSON struct {
	ID             string           `json:"id"`
	Seed           string           `json:"seed"`
	Pattern        string           `json:"pattern"`
	Hostname       string           `json:"hostname"`
	State          model.CrawlState `json:"state"`
	StartedAt      string           `json:"started_at"`
	FinishedAt     string           `json:"finished_at,omitempty"`
	PagesProcessed int              `json:"pages_processed"`
	PagesSaved     int              `json:"pages_saved"`
	PagesFailed    int              `json:"pages_failed"`
	URLsDiscovered int              `json:"urls_discovered"`
}

// WriteRuns outputs the runs as a JSON array.
func (w *JSONWriter) WriteRuns(runs []database.RunRecord) (int, error) {
	out := make([]runJSON, 0, len(runs))
	for _, r := range runs {
		item := runJSON{
			ID:             r.ID,
			Seed:           r.Seed,
			Pattern:        r.Pattern,
			Hostname:       r.Hostname,
			State:          r.State,
			StartedAt:      r.StartedAt.Format(jsonTimeLayout),
			PagesProcessed: r.PagesProcessed,
			PagesSaved:     r.PagesSaved,
			PagesFailed:    r.PagesFailed,
			URLsDiscovered: r.URLsDiscovered,
		}
		if !r.FinishedAt.IsZero() {
			item.FinishedAt = r.FinishedAt.Format(jsonTimeLayout)
		}
		out = append(out, item)
	}
	return w.writeJSON(out)
}

// WriteMatches outputs the matches of one run.
func (w *JSONWriter) WriteMatches(runID string, matches []model.MatchRecord) (int, error) {
	if matches == nil {
		matches = []model.MatchRecord{}
	}
	return w.writeJSON(struct {
		RunID   string              `json:"run_id"`
		Matches []model.MatchRecord `json:"matches"`
	}{runID, matches})
}

const jsonTimeLayout = "2006-01-02T15:04:05Z07:00"

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
