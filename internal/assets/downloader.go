package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/hostcrawl/internal/model"
)

const (
	// DefaultTimeout bounds every download.
	DefaultTimeout = 20 * time.Second

	// DefaultConcurrency is the number of parallel downloads.
	DefaultConcurrency = 4
)

var (
	// ErrRootNotFound is returned when the output root does not exist.
	ErrRootNotFound = errors.New("output root does not exist")

	// ErrUnknownPreset is returned for a preset name that does not exist.
	ErrUnknownPreset = errors.New("unknown asset preset")
)

// Downloader fetches the assets of one preset.
type Downloader struct {
	root        string
	preset      Preset
	client      *http.Client
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithClient sets the HTTP client.
func WithClient(client *http.Client) Option {
	return func(d *Downloader) {
		d.client = client
	}
}

// WithTimeout sets the per-download timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Downloader) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithConcurrency sets the number of parallel downloads.
func WithConcurrency(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// NewDownloader creates a Downloader for preset under root.
func NewDownloader(root string, preset Preset, opts ...Option) *Downloader {
	d := &Downloader{
		root:        root,
		preset:      preset,
		timeout:     DefaultTimeout,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.client == nil {
		d.client = &http.Client{}
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// TargetDir returns the download directory.
func (d *Downloader) TargetDir() string {
	return filepath.Join(d.root, d.preset.Dir)
}

// job is one planned download.
type job struct {
	url  string
	dest string
}

// Run scans the JSON documents, then downloads every asset not already on
// disk. Download failures are counted; only a missing root, an unreadable
// tree or cancellation return an error.
func (d *Downloader) Run(ctx context.Context) (*model.AssetSummary, error) {
	info, err := os.Stat(d.root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, d.root)
	}

	urls, err := d.collect()
	if err != nil {
		return nil, err
	}

	summary := &model.AssetSummary{Preset: d.preset.Name, Found: len(urls)}

	if err := os.MkdirAll(d.TargetDir(), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", d.TargetDir(), err)
	}

	jobs := d.plan(urls, summary)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for _, j := range jobs {
		g.Go(func() error {
			err := d.download(gctx, j.url, j.dest)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				d.logger.Warn("failed to download asset", "url", j.url, "error", err)
				return nil
			}
			summary.Downloaded++
			d.logger.Info("downloaded asset", "url", j.url, "path", j.dest)
			return nil
		})
	}
	_ = g.Wait()

	d.logger.Info("asset download finished",
		"preset", d.preset.Name,
		"downloaded", summary.Downloaded,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// collect returns the sorted, filtered asset URLs found in every JSON file.
func (d *Downloader) collect() ([]string, error) {
	files, err := jsonFiles(d.root)
	if err != nil {
		return nil, err
	}

	all := make(map[string]struct{})
	for _, file := range files {
		data, err := os.ReadFile(file) //nolint:gosec
		if err != nil {
			d.logger.Warn("failed to read document", "file", file, "error", err)
			continue
		}
		found := d.preset.ExtractURLs(string(data))
		if len(found) > 0 {
			d.logger.Info("found asset URLs", "preset", d.preset.Name, "count", len(found), "file", file)
		}
		for u := range found {
			all[u] = struct{}{}
		}
	}

	urls := make([]string, 0, len(all))
	for u := range all {
		if d.preset.Prefix == "" || strings.HasPrefix(u, d.preset.Prefix) {
			urls = append(urls, u)
		}
	}
	slices.Sort(urls)
	return urls, nil
}

// plan maps URLs to destinations in sorted order and drops those already
// present on disk or already claimed by an earlier URL.
func (d *Downloader) plan(urls []string, summary *model.AssetSummary) []job {
	seen := make(map[string]bool)
	claimed := make(map[string]bool)
	jobs := make([]job, 0, len(urls))

	for _, u := range urls {
		dest := filepath.Join(d.TargetDir(), d.targetName(u, seen))
		if claimed[dest] || fileExists(dest) {
			summary.Skipped++
			d.logger.Info("skipping existing asset", "path", dest)
			continue
		}
		claimed[dest] = true
		jobs = append(jobs, job{url: u, dest: dest})
	}
	return jobs
}

// targetName derives the file name for assetURL.
func (d *Downloader) targetName(assetURL string, seen map[string]bool) string {
	name := ""
	if u, err := url.Parse(assetURL); err == nil {
		name = path.Base(u.EscapedPath())
	}
	if name == "" || name == "." || name == ".." || name == "/" {
		name = d.preset.DefaultName
	}
	if !strings.Contains(name, ".") {
		name += d.preset.DefaultExt
	}

	if !d.preset.DedupeNames {
		return name
	}
	if !seen[name] {
		seen[name] = true
		return name
	}

	sum := sha256.Sum256([]byte(assetURL))
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		stem = d.preset.DefaultName
	}
	if ext == "" {
		ext = d.preset.DefaultExt
	}
	unique := stem + "_" + hex.EncodeToString(sum[:])[:8] + ext
	seen[unique] = true
	return unique
}

// download fetches assetURL into dest through a temporary file.
func (d *Downloader) download(ctx context.Context, assetURL, dest string) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", d.preset.UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close() //nolint:errcheck,gosec
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

// jsonFiles returns every *.json file under root, sorted.
func jsonFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(p) == ".json" {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	slices.Sort(files)
	return files, nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
