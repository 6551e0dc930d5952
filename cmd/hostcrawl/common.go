package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nao1215/hostcrawl/internal/config"
	hclog "github.com/nao1215/hostcrawl/internal/log"
	"github.com/nao1215/hostcrawl/internal/model"
	"github.com/nao1215/hostcrawl/internal/report"
)

// lookupFlag finds a flag on the command, falling back to the root's
// persistent flags so subcommands also work when executed on their own.
func lookupFlag(cmd *cobra.Command, name string) *pflag.Flag {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f
	}
	return cmd.Root().PersistentFlags().Lookup(name)
}

// flagChanged reports whether the user set the flag explicitly.
func flagChanged(cmd *cobra.Command, name string) bool {
	f := lookupFlag(cmd, name)
	return f != nil && f.Changed
}

// flagValue returns the string form of a flag, or "" when it is not defined.
func flagValue(cmd *cobra.Command, name string) string {
	if f := lookupFlag(cmd, name); f != nil {
		return f.Value.String()
	}
	return ""
}

// loadConfig builds the configuration from every source, flags last.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagValue(cmd, "config"), flagValue(cmd, "env-file"))
	if err != nil {
		return nil, err
	}

	cfg.Verbose = flagValue(cmd, "verbose") == "true"
	cfg.JSONLogs = flagValue(cmd, "log-json") == "true"
	if flagChanged(cmd, "log-level") {
		cfg.LogLevel = flagValue(cmd, "log-level")
	}
	if flagChanged(cmd, "output-dir") {
		cfg.OutputDir = flagValue(cmd, "output-dir")
	}

	if err := applyReportFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// addReportFlags registers the report format flags.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false, "Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false, "Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "", "Write report to the given file (creates directories if needed)")
}

func applyReportFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cmd.Flags().Lookup("json") == nil {
		return nil
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	return nil
}

// setupLogger installs the credential-masking logger as the default.
func setupLogger(cfg *config.Config) *slog.Logger {
	logger := hclog.NewLogger(os.Stderr, cfg.SlogLevel(), cfg.JSONLogs)
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// newReportWriter picks the writer for the configured format.
func newReportWriter(cfg *config.Config, w io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(w, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
	}
}

// withReportOutput calls fn with the report destination: the configured
// report file, or stdout.
func withReportOutput(cfg *config.Config, stdout io.Writer, fn func(report.Writer) error) error {
	if cfg.ReportFile == "" {
		return fn(newReportWriter(cfg, stdout))
	}

	if dir := filepath.Dir(cfg.ReportFile); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	// Reports can carry URLs with credentials, so keep them owner-only.
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := fn(newReportWriter(cfg, f)); err != nil {
		f.Close() //nolint:errcheck,gosec
		return err
	}
	return f.Close()
}

// writeRunReport renders report to the configured destination.
func writeRunReport(cfg *config.Config, stdout io.Writer, rep *model.RunReport) error {
	return withReportOutput(cfg, stdout, func(w report.Writer) error {
		_, err := w.Write(rep)
		return err
	})
}

// parseHeaders turns "Name: value" strings into a header map.
func parseHeaders(values []string) (map[string]string, error) {
	headers := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q (want \"Name: value\")", v)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// runError turns the pipeline result into the command's error so that a
// run with failed steps exits non-zero.
func runError(err error, rep *model.RunReport) error {
	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("run interrupted: %w", err)
	case err != nil:
		return err
	case rep.HasErrors():
		return fmt.Errorf("%d step(s) failed: %s", len(rep.Errors), strings.Join(rep.Errors, "; "))
	default:
		return nil
	}
}
