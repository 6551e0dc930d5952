// Package database keeps the run history of hostcrawl in SQLite.
//
// Every run gets a UUID, a row in the runs table with its final counters and
// report, and one row per saved page in the matches table. The history lets
// `hostcrawl history` show what earlier runs found without re-reading their
// match logs.
//
// The pure-Go modernc.org/sqlite driver is used so the binary builds
// without cgo.
package database
