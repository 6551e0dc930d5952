package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/nao1215/hostcrawl/internal/model"
)

// JSONDirName is the directory, next to each page, that receives its JSON.
const JSONDirName = "json"

// ErrRootNotFound is returned when the output root does not exist.
var ErrRootNotFound = errors.New("output root does not exist")

// Converter converts every stored page under an output root.
type Converter struct {
	root   string
	logger *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		c.logger = logger
	}
}

// NewConverter creates a Converter for root.
func NewConverter(root string, opts ...Option) *Converter {
	c := &Converter{root: root}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Run converts every page. Pages that fail are counted and logged; only a
// missing root, a failed directory walk or cancellation return an error.
func (c *Converter) Run(ctx context.Context) (*model.ConversionSummary, error) {
	info, err := os.Stat(c.root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, c.root)
	}

	files, err := HTMLFiles(c.root)
	if err != nil {
		return nil, err
	}

	summary := &model.ConversionSummary{}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		output, err := c.convertFile(file)
		if err != nil {
			summary.Failed++
			c.logger.Warn("failed to convert page", "file", file, "error", err)
			continue
		}
		summary.Converted++
		c.logger.Info("converted page", "file", file, "output", output)
	}

	c.logger.Info("conversion finished", "converted", summary.Converted, "failed", summary.Failed)
	return summary, nil
}

func (c *Converter) convertFile(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(c.root, path)
	if err != nil {
		rel = path
	}

	doc, err := ParseDocument(bytes.NewReader(data), filepath.ToSlash(rel))
	if err != nil {
		return "", err
	}

	output := OutputPath(path)
	if err := os.MkdirAll(filepath.Dir(output), 0o750); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", output, err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(output, buf.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", output, err)
	}
	return output, nil
}

// OutputPath returns <dir>/json/<stem>.json for a page path.
func OutputPath(htmlPath string) string {
	dir := filepath.Dir(htmlPath)
	stem := strings.TrimSuffix(filepath.Base(htmlPath), filepath.Ext(htmlPath))
	return filepath.Join(dir, JSONDirName, stem+".json")
}

// HTMLFiles returns every *.html file under root, sorted, skipping any path
// that has a json component below root.
func HTMLFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && d.Name() == JSONDirName {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ".html" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	slices.Sort(files)
	return files, nil
}
