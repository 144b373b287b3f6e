package sources

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned when a validation run does not exist.
var ErrRunNotFound = errors.New("run not found")

// RecordStore keeps validation runs and their records in SQLite.
type RecordStore struct {
	db *sql.DB
}

// Run is one invocation of the validator.
type Run struct {
	RunID      uuid.UUID  `json:"run_id"`
	InputPath  string     `json:"input_path"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Total      int        `json:"total"`
	Usable     int        `json:"usable"`
}

// RecordFilter narrows ListRecords.
type RecordFilter struct {
	Usable  *bool   // Filter by verdict
	Country *string // Filter by declared country
	Limit   int     // Pagination limit
}

// NewRecordStore opens (and if needed creates) the database at dbPath.
func NewRecordStore(dbPath string) (*RecordStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &RecordStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the runs and records tables if they don't exist.
func (s *RecordStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		input_path TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		total INTEGER DEFAULT 0,
		usable INTEGER DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS records (
		run_id TEXT NOT NULL REFERENCES runs(run_id),
		seq INTEGER NOT NULL,
		source_name TEXT NOT NULL,
		domain TEXT NOT NULL,
		country TEXT NOT NULL,
		rss_url TEXT,
		usable_source INTEGER NOT NULL,
		is_scraping_allowed INTEGER NOT NULL,
		is_domain_up INTEGER NOT NULL,
		is_rss_feed_available INTEGER NOT NULL,
		is_rss_feed_valid INTEGER NOT NULL,
		scraping_score REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, seq)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *RecordStore) Close() error {
	return s.db.Close()
}

// CreateRun starts a new run for the given input file.
func (s *RecordStore) CreateRun(inputPath string) (*Run, error) {
	run := &Run{
		RunID:     uuid.New(),
		InputPath: inputPath,
		StartedAt: time.Now(),
	}

	_, err := s.db.Exec(
		"INSERT INTO runs (run_id, input_path, started_at) VALUES (?, ?, ?)",
		run.RunID.String(), run.InputPath, formatTime(&run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	return run, nil
}

// FinishRun stamps a run with its totals.
func (s *RecordStore) FinishRun(runID uuid.UUID, total, usable int) error {
	now := time.Now()
	result, err := s.db.Exec(
		"UPDATE runs SET finished_at = ?, total = ?, usable = ? WHERE run_id = ?",
		formatTime(&now), total, usable, runID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrRunNotFound
	}

	return nil
}

// SaveRecord appends a record to a run. Records keep the order they were
// saved in, which is completion order.
func (s *RecordStore) SaveRecord(runID uuid.UUID, r Record) error {
	query := `
		INSERT INTO records (
			run_id, seq, source_name, domain, country, rss_url,
			usable_source, is_scraping_allowed, is_domain_up,
			is_rss_feed_available, is_rss_feed_valid, scraping_score
		) VALUES (
			?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM records WHERE run_id = ?),
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		)
	`

	var rssURL any
	if r.RSSURL != nil {
		rssURL = *r.RSSURL
	}

	_, err := s.db.Exec(query,
		runID.String(), runID.String(),
		r.Name, r.Domain, r.Country, rssURL,
		r.UsableSource, r.IsScrapingAllowed, r.IsDomainUp,
		r.IsRSSFeedAvailable, r.IsRSSFeedValid, r.ScrapingScore,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID.
func (s *RecordStore) GetRun(runID uuid.UUID) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, input_path, started_at, finished_at, total, usable
		FROM runs
		WHERE run_id = ?
	`, runID.String())

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	return run, err
}

// LatestRun returns the most recently created run.
func (s *RecordStore) LatestRun() (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, input_path, started_at, finished_at, total, usable
		FROM runs
		ORDER BY rowid DESC
		LIMIT 1
	`)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	return run, err
}

// ListRuns lists runs, most recently created first.
func (s *RecordStore) ListRuns() ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT run_id, input_path, started_at, finished_at, total, usable
		FROM runs
		ORDER BY rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// ListRecords lists the records of a run with optional filtering.
func (s *RecordStore) ListRecords(runID uuid.UUID, filter RecordFilter) ([]Record, error) {
	query := `
		SELECT source_name, domain, country, rss_url,
		       usable_source, is_scraping_allowed, is_domain_up,
		       is_rss_feed_available, is_rss_feed_valid, scraping_score
		FROM records
	`

	whereClauses := []string{"run_id = ?"}
	args := []any{runID.String()}

	if filter.Usable != nil {
		whereClauses = append(whereClauses, "usable_source = ?")
		args = append(args, *filter.Usable)
	}
	if filter.Country != nil {
		whereClauses = append(whereClauses, "country = ?")
		args = append(args, *filter.Country)
	}

	query += " WHERE " + strings.Join(whereClauses, " AND ")
	query += " ORDER BY seq"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var rssURL sql.NullString

		err := rows.Scan(
			&r.Name, &r.Domain, &r.Country, &rssURL,
			&r.UsableSource, &r.IsScrapingAllowed, &r.IsDomainUp,
			&r.IsRSSFeedAvailable, &r.IsRSSFeedValid, &r.ScrapingScore,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		if rssURL.Valid {
			r.RSSURL = &rssURL.String
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var runIDStr, inputPath, startedAtStr string
	var finishedAtStr sql.NullString
	var total, usable int

	err := row.Scan(&runIDStr, &inputPath, &startedAtStr, &finishedAtStr, &total, &usable)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	runID, err := uuid.Parse(runIDStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run ID: %w", err)
	}

	run := &Run{
		RunID:     runID,
		InputPath: inputPath,
		StartedAt: parseTime(startedAtStr),
		Total:     total,
		Usable:    usable,
	}
	if finishedAtStr.Valid {
		t := parseTime(finishedAtStr.String)
		run.FinishedAt = &t
	}

	return run, nil
}

// Helper functions for time formatting
func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	// Strip monotonic clock for consistent storage and comparisons
	return t.Truncate(0).Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	// Try RFC3339Nano first, fall back to RFC3339 for compatibility
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.Truncate(0)
}
