// Package report renders run reports and run history.
//
// Three formats are available: SimpleWriter for the terminal, JSONWriter
// for tools and MarkdownWriter for sharing. All of them implement Writer.
package report
