package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for hostcrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hostcrawl",
		Short: "Single-hostname crawler that saves pages matching a URL pattern",
		Long: `hostcrawl crawls one hostname breadth-first from a prefix URL and saves
every page whose URL matches a regular expression, together with an
append-only match log.

Saved pages can then be converted to structured JSON (convert) and the
assets they reference downloaded (assets). The run command does all three.

Settings come from defaults, a .hostcrawl YAML file, a .env file and
CRAWL_* environment variables, and finally command line flags.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .hostcrawl in current, XDG config or home directory)")
	cmd.PersistentFlags().String("env-file", "", "Dotenv file to load (default: .env)")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewConvertCmd())
	cmd.AddCommand(NewAssetsCmd())
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
