package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the config file name looked up in the current
	// and home directories.
	DefaultConfigFile = ".hostcrawl"

	// XDGConfigFile is the config file name inside the XDG config directory.
	XDGConfigFile = "config.yaml"
)

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// SiteConfig holds request settings for a single hostname.
type SiteConfig struct {
	// Cookie is sent as the Cookie header, e.g. "name1=value1; name2=value2".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra request headers.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// CrawlSection mirrors the crawl settings of Config. Zero values leave the
// current setting unchanged.
type CrawlSection struct {
	Prefix        string        `yaml:"prefix,omitempty"`
	Pattern       string        `yaml:"pattern,omitempty"`
	MaxPages      int           `yaml:"max_pages,omitempty"`
	Timeout       time.Duration `yaml:"timeout,omitempty"`
	OutputDir     string        `yaml:"output_dir,omitempty"`
	UserAgent     string        `yaml:"user_agent,omitempty"`
	Workers       int           `yaml:"workers,omitempty"`
	Delay         time.Duration `yaml:"delay,omitempty"`
	MaxBodySize   int64         `yaml:"max_body_size,omitempty"`
	LogDiscovered bool          `yaml:"log_discovered,omitempty"`
	LogLevel      string        `yaml:"log_level,omitempty"`
}

// AssetSection holds asset download settings.
type AssetSection struct {
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	Concurrency int           `yaml:"concurrency,omitempty"`
}

// File represents the structure of the YAML configuration file.
type File struct {
	// Crawl holds crawl settings.
	Crawl CrawlSection `yaml:"crawl,omitempty"`

	// Assets holds asset download settings.
	Assets AssetSection `yaml:"assets,omitempty"`

	// HistoryDir overrides the run history directory.
	HistoryDir string `yaml:"history_dir,omitempty"`

	// Defaults applies to every hostname unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Sites maps hostnames to their request settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`
}

// GetSiteConfig returns the settings for hostname merged over Defaults.
func (cf *File) GetSiteConfig(hostname string) SiteConfig {
	result := SiteConfig{Cookie: cf.Defaults.Cookie}
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	site, ok := cf.Sites[hostname]
	if !ok {
		return result
	}
	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range site.Headers {
			result.Headers[k] = v
		}
	}
	return result
}

// LoadConfigFile loads a YAML configuration file.
// It returns ErrConfigNotFound when path does not exist.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in this order:
//  1. configPath, when given
//  2. ./.hostcrawl
//  3. $XDG_CONFIG_HOME/hostcrawl/config.yaml
//  4. ~/.hostcrawl
//
// It returns an empty string when nothing is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), XDGConfigFile))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// ApplyFile copies the non-zero settings of cf onto c.
func (c *Config) ApplyFile(cf *File) {
	if cf == nil {
		return
	}
	c.SiteConfigs = cf

	cs := cf.Crawl
	if cs.Prefix != "" {
		c.SeedURL = cs.Prefix
	}
	if cs.Pattern != "" {
		c.MatchPattern = cs.Pattern
	}
	if cs.MaxPages > 0 {
		c.MaxPages = cs.MaxPages
	}
	if cs.Timeout > 0 {
		c.Timeout = cs.Timeout
	}
	if cs.OutputDir != "" {
		c.OutputDir = cs.OutputDir
	}
	if cs.UserAgent != "" {
		c.UserAgent = cs.UserAgent
	}
	if cs.Workers > 0 {
		c.Workers = cs.Workers
	}
	if cs.Delay > 0 {
		c.CrawlDelay = cs.Delay
	}
	if cs.MaxBodySize > 0 {
		c.MaxBodySize = cs.MaxBodySize
	}
	if cs.LogDiscovered {
		c.LogDiscovered = true
	}
	if cs.LogLevel != "" {
		c.LogLevel = cs.LogLevel
	}

	if cf.Assets.Timeout > 0 {
		c.AssetTimeout = cf.Assets.Timeout
	}
	if cf.Assets.Concurrency > 0 {
		c.AssetConcurrency = cf.Assets.Concurrency
	}
	if cf.HistoryDir != "" {
		c.HistoryDir = cf.HistoryDir
	}
}

// Load builds a Config from defaults, the config file and the environment.
// An explicitly requested config file that does not exist is an error; a
// missing default file is not.
func Load(configPath, envFile string) (*Config, error) {
	cfg := NewConfig()

	path := FindConfigFile(configPath)
	if configPath != "" && path == "" {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	}
	if path != "" {
		cf, err := LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg.ApplyFile(cf)
		cfg.ConfigFilePath = path
	}

	if err := LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)

	return cfg, nil
}
