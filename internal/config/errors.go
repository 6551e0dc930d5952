package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Callers can match them with errors.Is.
var (
	// ErrNoSeed is returned when no crawl prefix is configured.
	ErrNoSeed = errors.New("no crawl prefix specified: set CRAWL_URL_PREFIX or pass a URL")

	// ErrInvalidSeed is returned when the crawl prefix is not an absolute http(s) URL.
	ErrInvalidSeed = errors.New("invalid crawl prefix")

	// ErrNoPattern is returned when no match pattern is configured.
	ErrNoPattern = errors.New("no match pattern specified: set CRAWL_MATCH_REGEX or use --pattern")

	// ErrInvalidPattern is returned when the match pattern does not compile.
	ErrInvalidPattern = errors.New("invalid match pattern")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxPages is returned when the page budget is negative.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrNoOutputDir is returned when the output directory is empty.
	ErrNoOutputDir = errors.New("no output directory specified")

	// ErrInvalidLogLevel is returned for an unknown log level name.
	ErrInvalidLogLevel = errors.New("invalid log level: use debug, info, warn or error")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidAssetConcurrency is returned when the asset pool size is not positive.
	ErrInvalidAssetConcurrency = errors.New("invalid asset concurrency: must be positive")
)
