package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/hostcrawl/internal/model"
)

// FileName is the database file name inside the history directory.
const FileName = "hostcrawl.db"

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB stores past runs and the pages they saved.
// It is safe for concurrent use.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file when missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Open opens or creates the history database in dir.
func Open(dir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dir, FileName)

	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		}
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	mode := "rw"
	if opts.CreateIfNotExists {
		mode = "rwc"
	}

	db, err := sql.Open("sqlite", dbPath+"?mode="+mode+"&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed TEXT NOT NULL,
		pattern TEXT NOT NULL,
		hostname TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		pages_processed INTEGER NOT NULL DEFAULT 0,
		pages_saved INTEGER NOT NULL DEFAULT 0,
		pages_failed INTEGER NOT NULL DEFAULT 0,
		urls_discovered INTEGER NOT NULL DEFAULT 0,
		report_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		file TEXT NOT NULL,
		matches_json TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_matches_run ON matches(run_id);
	CREATE INDEX IF NOT EXISTS idx_matches_url ON matches(url);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is one stored run.
type RunRecord struct {
	ID             string
	Seed           string
	Pattern        string
	Hostname       string
	State          model.CrawlState
	StartedAt      time.Time
	FinishedAt     time.Time
	PagesProcessed int
	PagesSaved     int
	PagesFailed    int
	URLsDiscovered int
}

// StartRun records the start of a run in the running state.
func (h *HistoryDB) StartRun(ctx context.Context, runID, seed, pattern string, startedAt time.Time) error {
	query := `
	INSERT INTO runs (id, seed, pattern, state, started_at)
	VALUES (?, ?, ?, ?, ?)
	`
	if _, err := h.db.ExecContext(ctx, query, runID, seed, pattern, string(model.CrawlStateRunning), formatTimestamp(startedAt)); err != nil {
		return fmt.Errorf("failed to start run %s: %w", runID, err)
	}
	return nil
}

// FinishRun stores the final counters and the full report of a run.
func (h *HistoryDB) FinishRun(ctx context.Context, report *model.RunReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	state := model.CrawlStateCompleted
	var crawl model.CrawlSummary
	if report.Crawl != nil {
		crawl = *report.Crawl
		state = crawl.State
	}
	if report.Cancelled || !state.IsTerminal() {
		state = model.CrawlStateCancelled
	}

	query := `
	UPDATE runs SET
		hostname = ?, state = ?, finished_at = ?,
		pages_processed = ?, pages_saved = ?, pages_failed = ?, urls_discovered = ?,
		report_json = ?
	WHERE id = ?
	`
	res, err := h.db.ExecContext(ctx, query,
		crawl.Hostname, string(state), formatTimestamp(report.FinishedAt),
		crawl.PagesProcessed, crawl.PagesSaved, crawl.PagesFailed, crawl.URLsDiscovered,
		string(reportJSON), report.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", report.RunID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, report.RunID)
	}
	return nil
}

// InsertMatch stores one match record under runID.
func (h *HistoryDB) InsertMatch(ctx context.Context, runID string, rec model.MatchRecord) error {
	matches := rec.Matches
	if matches == nil {
		matches = []string{}
	}
	matchesJSON, err := json.Marshal(matches)
	if err != nil {
		return fmt.Errorf("failed to serialize matches: %w", err)
	}

	query := `
	INSERT INTO matches (run_id, url, file, matches_json, recorded_at)
	VALUES (?, ?, ?, ?, ?)
	`
	if _, err := h.db.ExecContext(ctx, query, runID, rec.URL, rec.File, string(matchesJSON), formatTimestamp(time.Now())); err != nil {
		return fmt.Errorf("failed to insert match for %s: %w", rec.URL, err)
	}
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 means all.
func (h *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
	SELECT id, seed, pattern, hostname, state, started_at, finished_at,
		pages_processed, pages_saved, pages_failed, urls_discovered
	FROM runs
	ORDER BY started_at DESC, rowid DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun returns one run or ErrRunNotFound.
func (h *HistoryDB) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	query := `
	SELECT id, seed, pattern, hostname, state, started_at, finished_at,
		pages_processed, pages_saved, pages_failed, urls_discovered
	FROM runs
	WHERE id = ?
	`
	run, err := scanRun(h.db.QueryRowContext(ctx, query, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, err
}

// GetRunReport returns the stored report of a finished run.
func (h *HistoryDB) GetRunReport(ctx context.Context, runID string) (*model.RunReport, error) {
	var reportJSON sql.NullString
	err := h.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, runID).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report for %s: %w", runID, err)
	}
	if !reportJSON.Valid {
		return nil, nil
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON.String), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// ListMatches returns the match records of a run in insertion order.
func (h *HistoryDB) ListMatches(ctx context.Context, runID string) ([]model.MatchRecord, error) {
	query := `
	SELECT url, file, matches_json FROM matches
	WHERE run_id = ?
	ORDER BY id
	`
	rows, err := h.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var records []model.MatchRecord
	for rows.Next() {
		var (
			rec         model.MatchRecord
			matchesJSON string
		)
		if err := rows.Scan(&rec.URL, &rec.File, &matchesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		if err := json.Unmarshal([]byte(matchesJSON), &rec.Matches); err != nil {
			rec.Matches = []string{}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var (
		run        RunRecord
		state      string
		startedAt  string
		finishedAt sql.NullString
	)
	err := row.Scan(&run.ID, &run.Seed, &run.Pattern, &run.Hostname, &state, &startedAt, &finishedAt,
		&run.PagesProcessed, &run.PagesSaved, &run.PagesFailed, &run.URLsDiscovered)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.State = model.CrawlState(state)
	run.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTimestamp(finishedAt.String)
	}
	return &run, nil
}

// timestampFormats are tried in order when reading stored timestamps.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// storedTimestampFormat is fixed-width so stored values sort by time.
const storedTimestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(storedTimestampFormat)
}

// parseTimestamp returns the zero time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
