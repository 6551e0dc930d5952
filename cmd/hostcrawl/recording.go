package main

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/nao1215/hostcrawl/internal/database"
	"github.com/nao1215/hostcrawl/internal/model"
	"github.com/nao1215/hostcrawl/internal/storage"
)

// recordingSink stores pages through a FileSink and mirrors every match
// record into the run history. The match log stays authoritative: a
// history write failure is logged and the page still counts as saved.
type recordingSink struct {
	ctx     context.Context //nolint:containedctx
	files   *storage.FileSink
	history *database.HistoryDB
	runID   string
	logger  *slog.Logger
}

func newRecordingSink(ctx context.Context, files *storage.FileSink, history *database.HistoryDB, runID string, logger *slog.Logger) *recordingSink {
	return &recordingSink{
		ctx:     context.WithoutCancel(ctx),
		files:   files,
		history: history,
		runID:   runID,
		logger:  logger,
	}
}

func (s *recordingSink) Save(pageURL string, body []byte, leadingNumber string) (string, error) {
	return s.files.Save(pageURL, body, leadingNumber)
}

func (s *recordingSink) RecordMatch(pageURL, storedPath string, matches []string) error {
	if err := s.files.RecordMatch(pageURL, storedPath, matches); err != nil {
		return err
	}

	rel, err := filepath.Rel(s.files.Root(), storedPath)
	if err != nil {
		rel = storedPath
	}
	rec := model.MatchRecord{URL: pageURL, File: filepath.ToSlash(rel), Matches: matches}
	if err := s.history.InsertMatch(s.ctx, s.runID, rec); err != nil {
		s.logger.Warn("failed to store match in history", "url", pageURL, "error", err)
	}
	return nil
}
