// Package crawler provides the single-hostname, breadth-first crawl engine.
//
// # Architecture
//
// The package is designed around the Spider type, which owns the frontier
// (a FIFO queue), the discovered set, the visited set and the run counters.
// Each run is seeded with one normalized prefix URL and stays on the
// prefix's hostname.
//
// # Components
//
//   - NormalizeURL / NormalizePrefix: canonical URL form used for dedup
//   - InScope: exact, case-insensitive hostname check
//   - Parser: anchor extraction from fetched markup
//   - Matcher: URL-only match policy deciding what gets persisted
//   - Sink: persistence boundary (see package storage)
//
// # Failure policy
//
// A failed fetch is logged, counted as processed and marked visited. It is
// never retried. A failed save is logged and the crawl continues.
//
// # Usage
//
//	matcher, _ := crawler.CompilePattern(`post/(\d+)`)
//	spider := crawler.NewSpider(http.DefaultClient, matcher, sink, crawler.WithMaxPages(100))
//	summary, err := spider.Crawl(ctx, "https://example.com/blog")
package crawler
