package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvURLPrefix     = "CRAWL_URL_PREFIX"
	EnvMatchRegex    = "CRAWL_MATCH_REGEX"
	EnvMaxPages      = "CRAWL_MAX_PAGES"
	EnvTimeout       = "CRAWL_TIMEOUT"
	EnvLogDiscovered = "CRAWL_LOG_DISCOVERED"
	EnvLogLevel      = "CRAWL_LOG_LEVEL"
	EnvOutputDir     = "CRAWL_OUTPUT_DIR"
)

// DefaultEnvFile is the dotenv file read from the working directory.
const DefaultEnvFile = ".env"

// LookupFunc looks up an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// LoadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv copies CRAWL_* variables onto c. Malformed or out-of-range
// CRAWL_MAX_PAGES and CRAWL_TIMEOUT values reset the setting to its default.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	if v, ok := lookup(EnvURLPrefix); ok && strings.TrimSpace(v) != "" {
		c.SeedURL = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvMatchRegex); ok && v != "" {
		c.MatchPattern = v
	}
	if v, ok := lookup(EnvMaxPages); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			n = DefaultMaxPages
		}
		c.MaxPages = n
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		secs, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || secs <= 0 {
			c.Timeout = DefaultTimeout
		} else {
			c.Timeout = time.Duration(secs) * time.Second
		}
	}
	if v, ok := lookup(EnvLogDiscovered); ok {
		c.LogDiscovered = v == "1"
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvOutputDir); ok && strings.TrimSpace(v) != "" {
		c.OutputDir = strings.TrimSpace(v)
	}
}
