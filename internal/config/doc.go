// Package config provides the run configuration for hostcrawl.
//
// Values are layered from lowest to highest precedence: built-in defaults,
// a YAML config file, a .env file plus CRAWL_* environment variables, and
// finally command-line flags applied by the caller.
package config
