package model

import "time"

// RunReport aggregates the results of every step executed by one
// hostcrawl invocation. Steps fill in the section they own.
type RunReport struct {
	// RunID identifies the run in the history database.
	RunID string `json:"run_id"`

	// StartedAt is when the first step began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last step returned.
	FinishedAt time.Time `json:"finished_at"`

	// Crawl is set by the crawl step.
	Crawl *CrawlSummary `json:"crawl,omitempty"`

	// Conversion is set by the convert step.
	Conversion *ConversionSummary `json:"conversion,omitempty"`

	// Assets has one entry per asset preset that ran.
	Assets []AssetSummary `json:"assets,omitempty"`

	// Errors collects step failures that did not abort the run.
	Errors []string `json:"errors,omitempty"`

	// Cancelled is true if the run was interrupted.
	Cancelled bool `json:"cancelled"`
}

// NewRunReport creates an empty report for the given run.
func NewRunReport(runID string) *RunReport {
	return &RunReport{
		RunID:     runID,
		StartedAt: time.Now(),
		Assets:    make([]AssetSummary, 0),
		Errors:    make([]string, 0),
	}
}

// AddError records a non-fatal step error.
func (r *RunReport) AddError(err error) {
	if err == nil {
		return
	}
	r.Errors = append(r.Errors, err.Error())
}

// HasErrors reports whether any step recorded an error.
func (r *RunReport) HasErrors() bool {
	return len(r.Errors) > 0
}
