package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/hostcrawl/internal/crawler"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "hostcrawl"

	// DefaultMaxPages is the page budget. 0 means unbounded.
	DefaultMaxPages = 0

	// DefaultTimeout bounds every page fetch.
	DefaultTimeout = 100 * time.Second

	// DefaultOutputDir is where pages, converted JSON and assets are written.
	DefaultOutputDir = "out"

	// DefaultWorkers keeps the traversal strictly breadth-first.
	DefaultWorkers = 1

	// DefaultCrawlDelay disables request spacing.
	DefaultCrawlDelay = 0

	// DefaultUserAgent is sent with every crawl request.
	DefaultUserAgent = "hostcrawl/1.0 (+https://github.com/nao1215/hostcrawl)"

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultLogLevel is the log level when none is configured.
	DefaultLogLevel = "info"

	// DefaultAssetTimeout bounds every asset download.
	DefaultAssetTimeout = 20 * time.Second

	// DefaultAssetConcurrency is the number of parallel asset downloads.
	DefaultAssetConcurrency = 4
)

// Config holds all options for one hostcrawl run.
// It is built once, validated, and passed explicitly to every component.
type Config struct {
	// SeedURL is the crawl prefix. Its hostname scopes the crawl.
	SeedURL string

	// MatchPattern is the regular expression applied to every fetched URL.
	MatchPattern string

	// MaxPages is the page budget. 0 means unbounded.
	MaxPages int

	// Timeout bounds every page fetch.
	Timeout time.Duration

	// OutputDir is the root for stored pages and the match log.
	OutputDir string

	// UserAgent is the User-Agent header sent with each request.
	UserAgent string

	// Workers is the number of concurrent fetches.
	Workers int

	// CrawlDelay is the minimum spacing between requests.
	CrawlDelay time.Duration

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// LogDiscovered logs every discovered link at debug level.
	LogDiscovered bool

	// LogLevel is one of debug, info, warn or error.
	LogLevel string

	// Verbose forces debug logging.
	Verbose bool

	// JSONLogs switches the log output to JSON lines.
	JSONLogs bool

	// Cookie is sent as the Cookie header when set.
	Cookie string

	// Headers are extra request headers.
	Headers map[string]string

	// HistoryDir holds the SQLite run history database.
	HistoryDir string

	// SaveHistory records runs and matches in the history database.
	SaveHistory bool

	// AssetTimeout bounds every asset download.
	AssetTimeout time.Duration

	// AssetConcurrency is the number of parallel asset downloads.
	AssetConcurrency int

	// ConfigFilePath is the YAML file the config was loaded from, if any.
	ConfigFilePath string

	// SiteConfigs holds per-hostname request settings from the config file.
	SiteConfigs *File

	// JSONReport selects the JSON run report.
	JSONReport bool

	// MarkdownReport selects the Markdown run report.
	MarkdownReport bool

	// ReportFile writes the run report to a file instead of stdout.
	ReportFile string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxPages:         DefaultMaxPages,
		Timeout:          DefaultTimeout,
		OutputDir:        DefaultOutputDir,
		UserAgent:        DefaultUserAgent,
		Workers:          DefaultWorkers,
		CrawlDelay:       DefaultCrawlDelay,
		MaxBodySize:      DefaultMaxBodySize,
		LogLevel:         DefaultLogLevel,
		HistoryDir:       XDGDataDir(),
		SaveHistory:      true,
		AssetTimeout:     DefaultAssetTimeout,
		AssetConcurrency: DefaultAssetConcurrency,
	}
}

// XDGDataDir returns the XDG data directory for hostcrawl.
// On Linux: ~/.local/share/hostcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for hostcrawl.
// On Linux: ~/.config/hostcrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the settings needed for a crawl and returns the first
// problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SeedURL) == "" {
		return ErrNoSeed
	}
	if _, _, err := crawler.NormalizePrefix(c.SeedURL); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	if c.MatchPattern == "" {
		return ErrNoPattern
	}
	if _, err := crawler.CompilePattern(c.MatchPattern); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	return c.ValidateCommon()
}

// ValidateCommon checks the settings shared by every command.
func (c *Config) ValidateCommon() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return ErrNoOutputDir
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.AssetConcurrency <= 0 {
		return ErrInvalidAssetConcurrency
	}
	return nil
}

// SlogLevel returns the effective log level. Verbose wins over LogLevel.
func (c *Config) SlogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	level, err := ParseLogLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// RequestHeaders returns the headers to send to hostname: the site
// configuration from the config file merged with Headers and Cookie.
func (c *Config) RequestHeaders(hostname string) map[string]string {
	headers := make(map[string]string)

	if c.SiteConfigs != nil {
		site := c.SiteConfigs.GetSiteConfig(hostname)
		for k, v := range site.Headers {
			headers[k] = v
		}
		if site.Cookie != "" {
			headers["Cookie"] = site.Cookie
		}
	}

	for k, v := range c.Headers {
		headers[k] = v
	}
	if c.Cookie != "" {
		headers["Cookie"] = c.Cookie
	}
	return headers
}

// ParseLogLevel maps a level name to a slog.Level. Empty means info.
func ParseLogLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, name)
	}
}
