package model

// MatchRecord is one line of the append-only match log.
// It is created exactly once per saved page and never rewritten.
type MatchRecord struct {
	// URL is the normalized URL of the saved page.
	URL string `json:"url"`

	// File is the stored page path, relative to the output root.
	File string `json:"file"`

	// Matches are the pattern matches found in URL, left to right.
	Matches []string `json:"matches"`
}
