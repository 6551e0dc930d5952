// Package model defines the data shared by the crawler, the converter, the
// asset downloader, the report writers and the history database.
//
// The main types are:
//   - MatchRecord: one line of the append-only match log
//   - CrawlSummary: counters and terminal state of one crawl
//   - PostDocument: the structured JSON form of a saved page
//   - RunReport: everything one hostcrawl invocation did
//
// Every type serializes to JSON for reports, documents and storage.
package model
