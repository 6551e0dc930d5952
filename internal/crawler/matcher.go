package crawler

import (
	"fmt"
	"regexp"
)

// Matcher decides which pages are persisted. It is applied to the page URL
// only, never to the page body.
type Matcher interface {
	// Matches returns every non-overlapping match in s, left to right.
	// An empty result means the page is not persisted.
	Matches(s string) []string
}

// RegexpMatcher is a Matcher backed by a compiled regular expression.
type RegexpMatcher struct {
	expr string
	re   *regexp.Regexp
}

// CompilePattern compiles expr in multi-line mode.
func CompilePattern(expr string) (*RegexpMatcher, error) {
	re, err := regexp.Compile("(?m)" + expr)
	if err != nil {
		return nil, fmt.Errorf("invalid match pattern %q: %w", expr, err)
	}
	return &RegexpMatcher{expr: expr, re: re}, nil
}

// Matches implements Matcher.
func (m *RegexpMatcher) Matches(s string) []string {
	return m.re.FindAllString(s, -1)
}

// String returns the expression the matcher was compiled from.
func (m *RegexpMatcher) String() string {
	return m.expr
}

var digitRun = regexp.MustCompile(`[0-9]+`)

// ExtractLeadingNumber returns the first run of ASCII digits found in any of
// the matches, scanning them in order. The digits are returned verbatim so
// leading zeros survive into file names.
func ExtractLeadingNumber(matches []string) (string, bool) {
	for _, m := range matches {
		if number := digitRun.FindString(m); number != "" {
			return number, true
		}
	}
	return "", false
}
