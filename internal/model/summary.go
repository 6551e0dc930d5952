package model

import "time"

// CrawlState is the lifecycle state of a single crawl run.
type CrawlState string

const (
	// CrawlStateIdle is the state before Crawl is called.
	CrawlStateIdle CrawlState = "idle"

	// CrawlStateRunning is the state while the frontier is being drained.
	CrawlStateRunning CrawlState = "running"

	// CrawlStateCompleted means the frontier became empty.
	CrawlStateCompleted CrawlState = "completed"

	// CrawlStatePageBudgetReached means the page budget stopped the run
	// while URLs were still queued.
	CrawlStatePageBudgetReached CrawlState = "page_budget_reached"

	// CrawlStateCancelled means the context ended before the run finished.
	CrawlStateCancelled CrawlState = "cancelled"
)

// IsTerminal reports whether the state ends a run.
func (s CrawlState) IsTerminal() bool {
	switch s {
	case CrawlStateCompleted, CrawlStatePageBudgetReached, CrawlStateCancelled:
		return true
	default:
		return false
	}
}

// CrawlSummary is the result of one crawl run.
// PagesProcessed counts every fetch attempt, successful or not.
type CrawlSummary struct {
	// Seed is the normalized crawl prefix.
	Seed string `json:"seed"`

	// Hostname is the allowed hostname derived from Seed.
	Hostname string `json:"hostname"`

	// Pattern is the match expression the run used.
	Pattern string `json:"pattern"`

	// State is the terminal state of the run.
	State CrawlState `json:"state"`

	// PagesProcessed is the number of fetch attempts.
	PagesProcessed int `json:"pages_processed"`

	// PagesSaved is the number of pages persisted by the sink.
	PagesSaved int `json:"pages_saved"`

	// PagesFailed is the number of fetch attempts that failed.
	PagesFailed int `json:"pages_failed"`

	// URLsDiscovered is the size of the discovered set, seed included.
	URLsDiscovered int `json:"urls_discovered"`

	// StartedAt is when the run entered the running state.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run reached a terminal state.
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns how long the run took.
func (s *CrawlSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// ConversionSummary counts the results of an HTML to JSON conversion pass.
type ConversionSummary struct {
	Converted int `json:"converted"`
	Failed    int `json:"failed"`
}

// AssetSummary counts the results of one asset download pass.
type AssetSummary struct {
	// Preset is the asset preset name, e.g. "picofile".
	Preset string `json:"preset"`

	// Found is the number of distinct asset URLs discovered.
	Found int `json:"found"`

	Downloaded int `json:"downloaded"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}
