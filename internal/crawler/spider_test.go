package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/hostcrawl/internal/model"
	"github.com/nao1215/hostcrawl/internal/storage"
)

// memSink records saved pages in memory.
type memSink struct {
	mu      sync.Mutex
	saved   map[string][]byte
	records []model.MatchRecord
	saveErr error
}

func newMemSink() *memSink {
	return &memSink{saved: make(map[string][]byte)}
}

func (m *memSink) Save(pageURL string, body []byte, leadingNumber string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return "", m.saveErr
	}
	path := pageURL + "#" + leadingNumber
	m.saved[path] = body
	return path, nil
}

func (m *memSink) RecordMatch(pageURL, storedPath string, matches []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, model.MatchRecord{URL: pageURL, File: storedPath, Matches: matches})
	return nil
}

func (m *memSink) recordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// hitCounter counts requests per path.
type hitCounter struct {
	mu   sync.Mutex
	hits map[string]int
}

func newHitCounter() *hitCounter {
	return &hitCounter{hits: make(map[string]int)}
}

func (h *hitCounter) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.hits[r.URL.Path]++
		h.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (h *hitCounter) get(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hits[path]
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustMatcher(t *testing.T, expr string) *RegexpMatcher {
	t.Helper()

	m, err := CompilePattern(expr)
	if err != nil {
		t.Fatalf("failed to compile %q: %v", expr, err)
	}
	return m
}

func page(links ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, l := range links {
		fmt.Fprintf(&b, `<a href="%s">link</a>`, l)
	}
	b.WriteString("</body></html>")
	return b.String()
}

// TestSpider tests the crawl engine against local servers.
func TestSpider(t *testing.T) {
	t.Parallel()

	t.Run("saves matching pages and records matches", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/blog", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(page("/post/42", "/about"))) //nolint:errcheck
		})
		mux.HandleFunc("/post/42", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("<html><body>Post 42</body></html>")) //nolint:errcheck
		})
		mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("<html><body>About</body></html>")) //nolint:errcheck
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		root := t.TempDir()
		sink, err := storage.NewFileSink(root, storage.WithLogger(quietLogger()))
		if err != nil {
			t.Fatalf("failed to create sink: %v", err)
		}

		spider := NewSpider(server.Client(), mustMatcher(t, `post/(\d+)`), sink, WithLogger(quietLogger()))
		summary, err := spider.Crawl(context.Background(), server.URL+"/blog")
		if err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}

		if summary.PagesProcessed != 3 {
			t.Errorf("expected 3 pages processed, got %d", summary.PagesProcessed)
		}
		if summary.PagesSaved != 1 {
			t.Errorf("expected 1 page saved, got %d", summary.PagesSaved)
		}
		if summary.State != model.CrawlStateCompleted {
			t.Errorf("expected state completed, got %s", summary.State)
		}

		records, err := storage.ReadMatchLog(sink.MatchLogPath())
		if err != nil {
			t.Fatalf("failed to read match log: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 match record, got %d", len(records))
		}
		if records[0].URL != server.URL+"/post/42" {
			t.Errorf("unexpected URL %q", records[0].URL)
		}
		if len(records[0].Matches) != 1 || records[0].Matches[0] != "post/42" {
			t.Errorf("expected matches [post/42], got %v", records[0].Matches)
		}
		if filepath.Base(records[0].File) != "post_42.html" {
			t.Errorf("expected post_42.html, got %q", records[0].File)
		}
	})

	t.Run("failed fetches count as processed", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			w.Write([]byte(page("/slow", "/fast", "/missing"))) //nolint:errcheck
		})
		mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-release:
			}
		})
		mux.HandleFunc("/fast", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("fast")) //nolint:errcheck
		})
		server := httptest.NewServer(mux)
		defer server.Close()
		defer close(release)

		sink := newMemSink()
		spider := NewSpider(server.Client(), mustMatcher(t, `slow|fast|missing`), sink,
			WithTimeout(200*time.Millisecond),
			WithLogger(quietLogger()),
		)

		summary, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}

		if summary.PagesProcessed != 4 {
			t.Errorf("expected 4 pages processed, got %d", summary.PagesProcessed)
		}
		if summary.PagesFailed != 2 {
			t.Errorf("expected 2 failed pages, got %d", summary.PagesFailed)
		}
		if summary.PagesSaved != 1 {
			t.Errorf("expected 1 saved page, got %d", summary.PagesSaved)
		}
		if sink.recordCount() != 1 {
			t.Errorf("expected only the fast page recorded, got %d", sink.recordCount())
		}
	})

	t.Run("stops at the page budget", func(t *testing.T) {
		t.Parallel()

		hits := newHitCounter()
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/" {
				w.Write([]byte(page("/1", "/2", "/3", "/4", "/5"))) //nolint:errcheck
				return
			}
			w.Write([]byte("leaf")) //nolint:errcheck
		})
		server := httptest.NewServer(hits.wrap(mux))
		defer server.Close()

		spider := NewSpider(server.Client(), mustMatcher(t, `/\d$`), newMemSink(),
			WithMaxPages(3),
			WithLogger(quietLogger()),
		)

		summary, err := spider.Crawl(context.Background(), server.URL+"/")
		if err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}

		if summary.PagesProcessed != 3 {
			t.Errorf("expected 3 pages processed, got %d", summary.PagesProcessed)
		}
		if summary.State != model.CrawlStatePageBudgetReached {
			t.Errorf("expected state page_budget_reached, got %s", summary.State)
		}
		if hits.get("/1") != 1 || hits.get("/2") != 1 || hits.get("/3") != 0 {
			t.Errorf("expected breadth-first order, got hits /1=%d /2=%d /3=%d",
				hits.get("/1"), hits.get("/2"), hits.get("/3"))
		}
	})

	t.Run("matches on URL only", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			w.Write([]byte(`<html><body>post/99 <a href="/about">about</a></body></html>`)) //nolint:errcheck
		})
		mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("see post/100")) //nolint:errcheck
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		sink := newMemSink()
		spider := NewSpider(server.Client(), mustMatcher(t, `post/\d+`), sink, WithLogger(quietLogger()))

		summary, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}
		if summary.PagesSaved != 0 {
			t.Errorf("expected no saved pages, got %d", summary.PagesSaved)
		}
		if sink.recordCount() != 0 {
			t.Errorf("expected no records, got %d", sink.recordCount())
		}
	})

	t.Run("matches the decoded form of non-ASCII paths", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/":
				w.Write([]byte(page("/پست/42"))) //nolint:errcheck
			case "/پست/42":
				w.Write([]byte("<html><body>post</body></html>")) //nolint:errcheck
			default:
				http.NotFound(w, r)
			}
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		sink := newMemSink()
		spider := NewSpider(server.Client(), mustMatcher(t, `پست/(\d+)`), sink, WithLogger(quietLogger()))

		summary, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}
		if summary.PagesProcessed != 2 {
			t.Errorf("expected 2 pages processed, got %d", summary.PagesProcessed)
		}
		if summary.PagesSaved != 1 {
			t.Fatalf("expected 1 page saved, got %d", summary.PagesSaved)
		}
		rec := sink.records[0]
		if len(rec.Matches) != 1 || rec.Matches[0] != "پست/42" {
			t.Errorf("expected matches [پست/42], got %v", rec.Matches)
		}
		if !strings.HasSuffix(rec.File, "#42") {
			t.Errorf("expected leading number 42, got %q", rec.File)
		}
		if !strings.Contains(rec.URL, "%D9%BE") {
			t.Errorf("expected the stored URL to stay percent-encoded, got %q", rec.URL)
		}
	})

	t.Run("escaped patterns still match encoded URLs", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/":
				w.Write([]byte(page("/a%20b/7"))) //nolint:errcheck
			case "/a b/7":
				w.Write([]byte("ok")) //nolint:errcheck
			default:
				http.NotFound(w, r)
			}
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		sink := newMemSink()
		spider := NewSpider(server.Client(), mustMatcher(t, `a%20b/\d+`), sink, WithLogger(quietLogger()))

		summary, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}
		if summary.PagesSaved != 1 {
			t.Errorf("expected 1 page saved, got %d", summary.PagesSaved)
		}
	})

	t.Run("fetches each normalized URL once", func(t *testing.T) {
		t.Parallel()

		hits := newHitCounter()
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/":
				w.Write([]byte(page("/a", "/a/", "/a#x", "/a#y", "/", "#top"))) //nolint:errcheck
			case "/a", "/a/":
				w.Write([]byte(page("/", "/a", "../a/"))) //nolint:errcheck
			default:
				http.NotFound(w, r)
			}
		})
		server := httptest.NewServer(hits.wrap(mux))
		defer server.Close()

		spider := NewSpider(server.Client(), mustMatcher(t, `nothing`), newMemSink(), WithLogger(quietLogger()))

		summary, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}
		if hits.get("/") != 1 {
			t.Errorf("expected root fetched once, got %d", hits.get("/"))
		}
		if hits.get("/a") != 1 || hits.get("/a/") != 0 {
			t.Errorf("expected /a fetched once, got /a=%d /a/=%d", hits.get("/a"), hits.get("/a/"))
		}
		if summary.PagesProcessed != 2 {
			t.Errorf("expected 2 pages processed, got %d", summary.PagesProcessed)
		}
		if summary.URLsDiscovered != 2 {
			t.Errorf("expected 2 discovered URLs, got %d", summary.URLsDiscovered)
		}
	})

	t.Run("ignores other hosts", func(t *testing.T) {
		t.Parallel()

		var otherHits int
		var mu sync.Mutex
		other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			mu.Lock()
			otherHits++
			mu.Unlock()
			w.Write([]byte("other")) //nolint:errcheck
		}))
		defer other.Close()

		// other listens on 127.0.0.1 too, so reach it through "localhost".
		otherURL := strings.Replace(other.URL, "127.0.0.1", "localhost", 1)

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			w.Write([]byte(page(otherURL+"/x", "http://external.invalid/y", "/local"))) //nolint:errcheck
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		spider := NewSpider(server.Client(), mustMatcher(t, `x|y`), newMemSink(), WithLogger(quietLogger()))

		summary, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}

		mu.Lock()
		defer mu.Unlock()
		if otherHits != 0 {
			t.Errorf("expected no requests to other hosts, got %d", otherHits)
		}
		if summary.PagesProcessed != 2 {
			t.Errorf("expected 2 pages processed, got %d", summary.PagesProcessed)
		}
	})

	t.Run("same hostname on another port is in scope", func(t *testing.T) {
		t.Parallel()

		hits := newHitCounter()
		other := httptest.NewServer(hits.wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("other port")) //nolint:errcheck
		})))
		defer other.Close()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(page(other.URL + "/elsewhere"))) //nolint:errcheck
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		spider := NewSpider(server.Client(), mustMatcher(t, `nothing`), newMemSink(), WithLogger(quietLogger()))
		if _, err := spider.Crawl(context.Background(), server.URL); err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}
		if hits.get("/elsewhere") != 1 {
			t.Errorf("expected the other port to be crawled once, got %d", hits.get("/elsewhere"))
		}
	})

	t.Run("multiple workers visit every page once", func(t *testing.T) {
		t.Parallel()

		const fanout = 20
		hits := newHitCounter()
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/" {
				links := make([]string, 0, fanout)
				for i := range fanout {
					links = append(links, fmt.Sprintf("/post/%d", i))
				}
				w.Write([]byte(page(links...))) //nolint:errcheck
				return
			}
			w.Write([]byte(page("/", "/post/0", "/post/1"))) //nolint:errcheck
		})
		server := httptest.NewServer(hits.wrap(mux))
		defer server.Close()

		root := t.TempDir()
		sink, err := storage.NewFileSink(root, storage.WithLogger(quietLogger()))
		if err != nil {
			t.Fatalf("failed to create sink: %v", err)
		}

		spider := NewSpider(server.Client(), mustMatcher(t, `post/\d+`), sink,
			WithWorkers(4),
			WithLogger(quietLogger()),
		)
		summary, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}

		if summary.PagesProcessed != fanout+1 {
			t.Errorf("expected %d pages processed, got %d", fanout+1, summary.PagesProcessed)
		}
		if summary.PagesSaved != fanout {
			t.Errorf("expected %d pages saved, got %d", fanout, summary.PagesSaved)
		}
		for i := range fanout {
			if got := hits.get(fmt.Sprintf("/post/%d", i)); got != 1 {
				t.Errorf("expected /post/%d fetched once, got %d", i, got)
			}
		}

		records, err := storage.ReadMatchLog(sink.MatchLogPath())
		if err != nil {
			t.Fatalf("failed to read match log: %v", err)
		}
		if len(records) != fanout {
			t.Errorf("expected %d match records, got %d", fanout, len(records))
		}
	})

	t.Run("persistence failure does not stop the crawl", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/" {
				w.Write([]byte(page("/post/1", "/post/2"))) //nolint:errcheck
				return
			}
			w.Write([]byte("post")) //nolint:errcheck
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		sink := newMemSink()
		sink.saveErr = errors.New("disk full")
		spider := NewSpider(server.Client(), mustMatcher(t, `post/\d+`), sink, WithLogger(quietLogger()))

		summary, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}
		if summary.PagesProcessed != 3 {
			t.Errorf("expected 3 pages processed, got %d", summary.PagesProcessed)
		}
		if summary.PagesSaved != 0 {
			t.Errorf("expected no saved pages, got %d", summary.PagesSaved)
		}
		if summary.PagesFailed != 0 {
			t.Errorf("expected no failed fetches, got %d", summary.PagesFailed)
		}
	})

	t.Run("sends user agent and headers", func(t *testing.T) {
		t.Parallel()

		var (
			mu     sync.Mutex
			ua     string
			cookie string
		)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			ua = r.Header.Get("User-Agent")
			cookie = r.Header.Get("Cookie")
			mu.Unlock()
			w.Write([]byte("ok")) //nolint:errcheck
		}))
		defer server.Close()

		spider := NewSpider(server.Client(), mustMatcher(t, `nothing`), newMemSink(),
			WithUserAgent("test-agent/1.0"),
			WithHeaders(map[string]string{"Cookie": "session=abc"}),
			WithLogger(quietLogger()),
		)
		if _, err := spider.Crawl(context.Background(), server.URL); err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}

		mu.Lock()
		defer mu.Unlock()
		if ua != "test-agent/1.0" {
			t.Errorf("expected user agent 'test-agent/1.0', got %q", ua)
		}
		if cookie != "session=abc" {
			t.Errorf("expected cookie 'session=abc', got %q", cookie)
		}
	})

	t.Run("cancellation stops the crawl", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(page("/a", "/b"))) //nolint:errcheck
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		spider := NewSpider(server.Client(), mustMatcher(t, `a`), newMemSink(), WithLogger(quietLogger()))
		summary, err := spider.Crawl(ctx, server.URL)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if summary == nil {
			t.Fatal("expected a summary on cancellation")
		}
		if summary.State != model.CrawlStateCancelled {
			t.Errorf("expected state cancelled, got %s", summary.State)
		}
		if summary.PagesProcessed != 0 {
			t.Errorf("expected no pages processed, got %d", summary.PagesProcessed)
		}
	})

	t.Run("cancellation during a fetch drains in-flight work", func(t *testing.T) {
		t.Parallel()

		started := make(chan struct{})
		var once sync.Once
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			once.Do(func() { close(started) })
			<-r.Context().Done()
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-started
			cancel()
		}()

		spider := NewSpider(server.Client(), mustMatcher(t, `a`), newMemSink(), WithLogger(quietLogger()))
		summary, err := spider.Crawl(ctx, server.URL)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if summary.PagesProcessed != 1 || summary.PagesFailed != 1 {
			t.Errorf("expected the in-flight page counted as failed, got processed=%d failed=%d",
				summary.PagesProcessed, summary.PagesFailed)
		}
	})

	t.Run("invalid prefix", func(t *testing.T) {
		t.Parallel()

		spider := NewSpider(nil, mustMatcher(t, `a`), newMemSink(), WithLogger(quietLogger()))
		if _, err := spider.Crawl(context.Background(), "not a url"); !errors.Is(err, ErrUnsupportedScheme) {
			t.Errorf("expected ErrUnsupportedScheme, got %v", err)
		}
	})

	t.Run("404 is a fetch error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		spider := NewSpider(server.Client(), mustMatcher(t, `.`), newMemSink(), WithLogger(quietLogger()))
		got, err := spider.fetch(context.Background(), server.URL+"/gone")
		if got != nil {
			t.Errorf("expected no body, got %q", got)
		}
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("expected FetchError, got %v", err)
		}
		if fetchErr.StatusCode != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", fetchErr.StatusCode)
		}
		if !errors.Is(err, ErrUnexpectedStatus) {
			t.Errorf("expected ErrUnexpectedStatus, got %v", err)
		}
	})

	t.Run("delay spaces requests", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/" {
				w.Write([]byte(page("/a", "/b"))) //nolint:errcheck
				return
			}
			w.Write([]byte("leaf")) //nolint:errcheck
		}))
		defer server.Close()

		spider := NewSpider(server.Client(), mustMatcher(t, `nothing`), newMemSink(),
			WithDelay(50*time.Millisecond),
			WithLogger(quietLogger()),
		)
		start := time.Now()
		if _, err := spider.Crawl(context.Background(), server.URL); err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
			t.Errorf("expected at least 100ms for 3 spaced requests, got %v", elapsed)
		}
	})
}
