// Package storage persists matched pages to disk.
//
// Pages are written under <root>/<hostname>/ with deterministic file names:
// post_<n>.html when the match carries a numeric identifier, otherwise the
// sanitized last path segment followed by a short URL hash. Existing files are
// never overwritten; a numeric suffix is probed instead.
//
// Saving is not idempotent across runs: crawling again into a populated
// output tree writes stem_1.html, stem_2.html and so on next to the earlier
// copies.
//
// Every saved page is also appended to <root>/matches.jsonl as one JSON
// object per line.
package storage
