// Package main provides the entry point for the hostcrawl CLI.
//
// hostcrawl crawls one hostname breadth-first, saves the pages whose URL
// matches a pattern, converts them to structured JSON and downloads the
// assets they reference.
//
// Usage:
//
//	hostcrawl crawl https://example.blogsky.com/ --pattern 'post-\d+'
//	hostcrawl run https://example.blogsky.com/ --pattern 'post-\d+'
//
// See --help for all available options.
package main

func main() {
	Execute()
}
