// Package log builds the slog loggers used by hostcrawl.
//
// Crawls can be configured with cookies and authorization headers, and
// crawled URLs sometimes carry session tokens in their query strings.
// SecureHandler masks those values before any handler formats them, so
// debug logs can be shared without leaking credentials.
//
//	logger := log.NewLogger(os.Stderr, slog.LevelInfo, false)
//	logger.Info("fetching", "url", "https://example.com/p?token=abc")
//	// url=https://example.com/p?token=%2A%2A%2AREDACTED%2A%2A%2A
package log
