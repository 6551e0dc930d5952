package crawler

import (
	"iter"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Parser extracts crawl candidates from a fetched page.
// Only <a> elements carrying an href attribute are considered.
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving relative URLs.
	baseURL *url.URL

	logger *slog.Logger
}

// NewParser creates a Parser that resolves links against baseURL.
// A nil logger means slog.Default().
func NewParser(baseURL string, logger *slog.Logger) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{baseURL: u, logger: logger}, nil
}

// Links returns the normalized URLs of every anchor in markup, in document
// order. Duplicates are kept. The markup is parsed each time the sequence
// is ranged over; nothing is cached.
func (p *Parser) Links(markup string) iter.Seq[string] {
	return func(yield func(string) bool) {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
		if err != nil {
			p.logger.Debug("failed to parse page", "url", p.baseURL.String(), "error", err)
			return
		}

		doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			href = strings.TrimSpace(href)
			if href == "" {
				return true
			}

			normalized, ok := p.resolve(href)
			if !ok {
				p.logger.Debug("ignored href (unsupported or non-HTTP scheme)",
					"href", href,
					"page", p.baseURL.String(),
				)
				return true
			}
			return yield(normalized)
		})
	}
}

// resolve joins href with the base URL and normalizes the result.
func (p *Parser) resolve(href string) (string, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	return NormalizeURL(p.baseURL.ResolveReference(ref).String())
}

// ExtractLinks is a convenience wrapper around NewParser and Parser.Links.
// An unparseable baseURL yields an empty sequence.
func ExtractLinks(markup, baseURL string) iter.Seq[string] {
	p, err := NewParser(baseURL, nil)
	if err != nil {
		return func(func(string) bool) {}
	}
	return p.Links(markup)
}
