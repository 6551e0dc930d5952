package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/nao1215/hostcrawl/internal/model"
)

const (
	// DefaultMaxCollisionProbes bounds the _N suffix search.
	DefaultMaxCollisionProbes = 10000

	// MatchLogName is the match log file name under the output root.
	MatchLogName = "matches.jsonl"
)

var (
	// ErrTooManyCollisions is returned when no free file name was found.
	ErrTooManyCollisions = errors.New("too many filename collisions")

	// ErrEmptyRoot is returned when the output root is empty.
	ErrEmptyRoot = errors.New("output root is required")
)

// FileSink stores matched pages on the local filesystem.
// It is safe for concurrent use.
type FileSink struct {
	root      string
	maxProbes int
	logger    *slog.Logger

	mu       sync.Mutex
	matchLog string
}

// FileSinkOption configures a FileSink.
type FileSinkOption func(*FileSink)

// WithMaxCollisionProbes sets how many suffixed names are tried.
func WithMaxCollisionProbes(n int) FileSinkOption {
	return func(s *FileSink) {
		if n > 0 {
			s.maxProbes = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) FileSinkOption {
	return func(s *FileSink) {
		s.logger = logger
	}
}

// WithMatchLog overrides the match log path.
func WithMatchLog(path string) FileSinkOption {
	return func(s *FileSink) {
		s.matchLog = path
	}
}

// NewFileSink creates a sink rooted at root. Directories are created lazily.
func NewFileSink(root string, opts ...FileSinkOption) (*FileSink, error) {
	if root == "" {
		return nil, ErrEmptyRoot
	}

	s := &FileSink{
		root:      root,
		maxProbes: DefaultMaxCollisionProbes,
		matchLog:  filepath.Join(root, MatchLogName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Root returns the output root.
func (s *FileSink) Root() string {
	return s.root
}

// MatchLogPath returns the match log path.
func (s *FileSink) MatchLogPath() string {
	return s.matchLog
}

// Save writes body to a fresh file for pageURL and returns its path.
func (s *FileSink) Save(pageURL string, body []byte, leadingNumber string) (string, error) {
	dir := filepath.Join(s.root, hostDir(pageURL))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	stem := FilenameStem(pageURL, leadingNumber)
	file, path, err := s.claim(dir, stem)
	if err != nil {
		return "", err
	}

	if _, err := file.Write(body); err != nil {
		file.Close() //nolint:errcheck,gosec
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}

	s.logger.Debug("stored page", "url", pageURL, "path", path, "bytes", len(body))
	return path, nil
}

// claim creates the first free name among stem.html, stem_1.html, ...
func (s *FileSink) claim(dir, stem string) (*os.File, string, error) {
	for i := range s.maxProbes {
		name := stem + ".html"
		if i > 0 {
			name = stem + "_" + strconv.Itoa(i) + ".html"
		}
		path := filepath.Join(dir, name)

		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600) //nolint:gosec
		if err == nil {
			return file, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("failed to create %s: %w", path, err)
		}
	}
	return nil, "", fmt.Errorf("%w: %s after %d attempts", ErrTooManyCollisions, filepath.Join(dir, stem), s.maxProbes)
}

// RecordMatch appends one record to the match log.
func (s *FileSink) RecordMatch(pageURL, storedPath string, matches []string) error {
	rel, err := filepath.Rel(s.root, storedPath)
	if err != nil {
		rel = storedPath
	}
	if matches == nil {
		matches = []string{}
	}

	record := model.MatchRecord{
		URL:     pageURL,
		File:    filepath.ToSlash(rel),
		Matches: matches,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(record); err != nil {
		return fmt.Errorf("failed to encode match record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.matchLog), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", s.matchLog, err)
	}

	f, err := os.OpenFile(s.matchLog, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600) //nolint:gosec
	if err != nil {
		return fmt.Errorf("failed to open match log %s: %w", s.matchLog, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close() //nolint:errcheck,gosec
		return fmt.Errorf("failed to append to match log %s: %w", s.matchLog, err)
	}
	return f.Close()
}

// ReadMatchLog reads every record from a match log file.
func ReadMatchLog(path string) ([]model.MatchRecord, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("failed to read match log %s: %w", path, err)
	}

	var records []model.MatchRecord
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var rec model.MatchRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode match log %s: %w", path, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
