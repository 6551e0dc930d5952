package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/nao1215/hostcrawl/internal/model"
	"golang.org/x/time/rate"
)

// Sink persists matched pages. Implementations must be safe for concurrent
// use when the Spider runs more than one worker.
type Sink interface {
	// Save writes body for pageURL and returns the stored file path.
	// leadingNumber is empty when no number could be extracted.
	Save(pageURL string, body []byte, leadingNumber string) (string, error)

	// RecordMatch appends one match record for a saved page.
	RecordMatch(pageURL, storedPath string, matches []string) error
}

// Spider crawls a single hostname breadth-first, starting from a prefix URL.
// Pages whose URL satisfies the Matcher are handed to the Sink.
//
// One dispatcher goroutine owns the frontier, the discovered and visited
// sets and the counters. Workers only fetch, match, persist and extract
// links, then report back. With a single worker the traversal is strictly
// breadth-first.
type Spider struct {
	// client is the HTTP client used for every fetch.
	client *http.Client

	matcher Matcher
	sink    Sink
	logger  *slog.Logger

	// maxPages is the page budget. 0 means unbounded.
	maxPages int

	// timeout bounds each fetch.
	timeout time.Duration

	// workers is the number of concurrent fetches.
	workers int

	// userAgent is the User-Agent header to use.
	userAgent string

	// headers are sent with every request, after User-Agent.
	headers map[string]string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// limiter spaces requests apart. nil means no delay.
	limiter *rate.Limiter

	// logDiscovered logs every candidate link at debug level.
	logDiscovered bool
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxPages sets the page budget. 0 means unbounded.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithTimeout sets the per-fetch timeout.
func WithTimeout(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.timeout = d
	}
}

// WithWorkers sets the number of concurrent fetches. Values below 1 are ignored.
func WithWorkers(n int) SpiderOption {
	return func(s *Spider) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		s.userAgent = ua
	}
}

// WithHeaders sets extra request headers, e.g. Cookie or Authorization.
func WithHeaders(headers map[string]string) SpiderOption {
	return func(s *Spider) {
		s.headers = headers
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		s.maxBodySize = size
	}
}

// WithDelay sets the minimum spacing between requests. 0 disables it.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		if d <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// WithLogDiscovered logs every discovered link at debug level.
func WithLogDiscovered(enabled bool) SpiderOption {
	return func(s *Spider) {
		s.logDiscovered = enabled
	}
}

// NewSpider creates a Spider. A nil client means a fresh http.Client.
func NewSpider(client *http.Client, matcher Matcher, sink Sink, opts ...SpiderOption) *Spider {
	if client == nil {
		client = &http.Client{}
	}
	s := &Spider{
		client:      client,
		matcher:     matcher,
		sink:        sink,
		timeout:     100 * time.Second,
		workers:     1,
		userAgent:   "hostcrawl",
		maxBodySize: 10 * 1024 * 1024, // 10MB
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// outcome is what a worker reports back for one URL.
type outcome struct {
	url   string
	err   error
	saved bool
	links []string
}

// Crawl runs one crawl from prefix until the frontier is empty, the page
// budget is spent, or ctx ends. The summary is returned in every case once
// the prefix is valid; ctx.Err() is returned alongside it on cancellation.
func (s *Spider) Crawl(ctx context.Context, prefix string) (*model.CrawlSummary, error) {
	seed, hostname, err := NormalizePrefix(prefix)
	if err != nil {
		return nil, err
	}

	summary := &model.CrawlSummary{
		Seed:      seed,
		Hostname:  hostname,
		Pattern:   fmt.Sprint(s.matcher),
		State:     model.CrawlStateRunning,
		StartedAt: time.Now(),
	}

	s.logger.Info("crawler config",
		"prefix", seed,
		"hostname", hostname,
		"pattern", summary.Pattern,
		"max_pages", s.budgetLabel(),
		"timeout", s.timeout,
		"workers", s.workers,
	)

	f := newFrontier(seed)
	jobs := make(chan string)
	results := make(chan outcome, s.workers)

	var wg sync.WaitGroup
	for range s.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pageURL := range jobs {
				results <- s.process(ctx, pageURL)
			}
		}()
	}

	var (
		inFlight   int
		dispatched int
		cancelled  bool
		done       = ctx.Done()
	)

	for {
		if ctx.Err() != nil {
			cancelled = true
		}

		for !cancelled && inFlight < s.workers && f.Len() > 0 && !s.budgetReached(dispatched) {
			next, _ := f.pop()
			if f.isVisited(next) {
				continue
			}
			s.logger.Info("fetching", "url", next)
			dispatched++
			inFlight++
			jobs <- next
		}

		if inFlight == 0 {
			break
		}

		select {
		case out := <-results:
			inFlight--
			s.handle(f, summary, out)
		case <-done:
			cancelled = true
			done = nil
		}
	}

	close(jobs)
	wg.Wait()

	summary.URLsDiscovered = f.discoveredCount()
	summary.FinishedAt = time.Now()

	switch {
	case cancelled:
		summary.State = model.CrawlStateCancelled
	case f.Len() == 0:
		summary.State = model.CrawlStateCompleted
	default:
		summary.State = model.CrawlStatePageBudgetReached
		s.logger.Info("stopped because the page budget was reached", "max_pages", s.maxPages)
	}

	s.logger.Info("crawl finished",
		"state", summary.State,
		"processed", summary.PagesProcessed,
		"saved", summary.PagesSaved,
		"failed", summary.PagesFailed,
	)

	if cancelled {
		return summary, ctx.Err()
	}
	return summary, nil
}

// handle applies one worker outcome to the crawl state.
func (s *Spider) handle(f *frontier, summary *model.CrawlSummary, out outcome) {
	summary.PagesProcessed++

	if out.err != nil {
		summary.PagesFailed++
		s.logger.Warn("skipping page", "url", out.url, "error", out.err)
		f.markVisited(out.url)
		return
	}

	if out.saved {
		summary.PagesSaved++
	}

	for _, link := range out.links {
		if s.logDiscovered {
			s.logger.Debug("discovered", "url", link, "page", out.url)
		}
		if !InScope(link, summary.Hostname) {
			continue
		}
		f.discover(link)
	}

	f.markVisited(out.url)
}

// process fetches one page, persists it if it matches, and extracts its links.
func (s *Spider) process(ctx context.Context, pageURL string) outcome {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return outcome{url: pageURL, err: &FetchError{URL: pageURL, Err: err}}
		}
	}

	body, err := s.fetch(ctx, pageURL)
	if err != nil {
		return outcome{url: pageURL, err: err}
	}

	saved := s.persist(pageURL, body)

	var links []string
	parser, err := NewParser(pageURL, s.logger)
	if err == nil {
		links = slices.Collect(parser.Links(string(body)))
	}

	return outcome{url: pageURL, saved: saved, links: links}
}

// fetch performs a GET bounded by the configured timeout.
func (s *Spider) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	req.Header.Set("User-Agent", s.userAgent)
	for key, value := range s.headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode, Err: ErrUnexpectedStatus}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode, Err: err}
	}
	return body, nil
}

// persist saves the page when its URL matches. Persistence failures are
// logged and reported as not saved; they never stop the crawl.
func (s *Spider) persist(pageURL string, body []byte) bool {
	target := matchTarget(pageURL)
	matches := s.matcher.Matches(target)
	if len(matches) == 0 && target != pageURL {
		matches = s.matcher.Matches(pageURL)
	}
	if len(matches) == 0 {
		return false
	}

	number, _ := ExtractLeadingNumber(matches)
	path, err := s.sink.Save(pageURL, body, number)
	if err != nil {
		s.logger.Error("failed to save page", "url", pageURL, "error", err)
		return false
	}
	if err := s.sink.RecordMatch(pageURL, path, matches); err != nil {
		s.logger.Error("failed to record match", "url", pageURL, "path", path, "error", err)
		return false
	}

	s.logger.Info("saved page", "url", pageURL, "path", path, "matches", len(matches))
	return true
}

// matchTarget returns pageURL with its percent-escapes decoded so patterns
// can be written against the readable path.
func matchTarget(pageURL string) string {
	decoded, err := url.PathUnescape(pageURL)
	if err != nil {
		return pageURL
	}
	return decoded
}

func (s *Spider) budgetReached(dispatched int) bool {
	return s.maxPages > 0 && dispatched >= s.maxPages
}

func (s *Spider) budgetLabel() string {
	if s.maxPages == 0 {
		return "unbounded"
	}
	return fmt.Sprint(s.maxPages)
}
