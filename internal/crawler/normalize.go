package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrUnsupportedScheme is returned when a crawl prefix is not http or https.
	ErrUnsupportedScheme = errors.New("URL must start with http:// or https://")

	// ErrMissingHost is returned when a crawl prefix has no hostname.
	ErrMissingHost = errors.New("URL must include a hostname")
)

// NormalizeURL canonicalizes raw into the form used as the crawl identity key.
// The fragment and any ;params on the last path segment are dropped, an empty
// path becomes "/", trailing slashes are removed from any other path, and the
// query string is kept verbatim. It returns false for anything that is not an
// absolute http or https URL.
//
// NormalizeURL is idempotent.
func NormalizeURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Host == "" {
		return "", false
	}

	path := cleanPath(u.EscapedPath())

	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	if u.User != nil {
		b.WriteString(u.User.String())
		b.WriteByte('@')
	}
	b.WriteString(u.Host)
	b.WriteString(path)
	if u.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}
	return b.String(), true
}

// cleanPath strips trailing slashes and last-segment params until neither
// applies, so the result is stable under another pass.
func cleanPath(path string) string {
	for {
		next := stripParams(strings.TrimRight(path, "/"))
		if next == path {
			break
		}
		path = next
	}
	if path == "" {
		return "/"
	}
	return path
}

// stripParams removes ";params" from the last segment of an escaped path.
func stripParams(path string) string {
	lastSlash := strings.LastIndex(path, "/")
	if i := strings.Index(path[lastSlash+1:], ";"); i >= 0 {
		return path[:lastSlash+1+i]
	}
	return path
}

// NormalizePrefix validates and canonicalizes the crawl seed. The query is
// dropped in addition to what NormalizeURL removes. It also returns the
// lower-cased hostname that scopes the crawl.
func NormalizePrefix(raw string) (prefix string, hostname string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("invalid crawl prefix %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", fmt.Errorf("invalid crawl prefix %q: %w", raw, ErrUnsupportedScheme)
	}
	if u.Hostname() == "" {
		return "", "", fmt.Errorf("invalid crawl prefix %q: %w", raw, ErrMissingHost)
	}

	u.RawQuery = ""
	u.ForceQuery = false
	prefix, ok := NormalizeURL(u.String())
	if !ok {
		return "", "", fmt.Errorf("invalid crawl prefix %q: %w", raw, ErrMissingHost)
	}
	return prefix, strings.ToLower(u.Hostname()), nil
}

// InScope reports whether u belongs to the crawl's allowed hostname.
// Only exact, case-insensitive hostname equality counts; ports and
// subdomains are not considered.
func InScope(u, allowedHostname string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	return host != "" && strings.EqualFold(host, allowedHostname)
}
