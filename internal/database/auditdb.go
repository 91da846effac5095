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

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/seoaudit/internal/model"
)

// DatabaseFile is the file name of the history database inside its directory.
const DatabaseFile = "seoaudit.db"

// AuditDB provides SQLite-based storage for audit history.
type AuditDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures AuditDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates an AuditDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*AuditDB, error) {
	dbPath := filepath.Join(dbDir, DatabaseFile)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}
	dsn += "&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &AuditDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return adb, nil
}

// Path returns the database file path.
func (adb *AuditDB) Path() string {
	return adb.dbPath
}

// Close closes the database connection.
func (adb *AuditDB) Close() error {
	return adb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (adb *AuditDB) createTables() error {
	schema := `
	-- One row per finalized crawl session
	CREATE TABLE IF NOT EXISTS audits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL UNIQUE,
		domain TEXT NOT NULL,
		start_url TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audits_domain ON audits(domain);
	CREATE INDEX IF NOT EXISTS idx_audits_started ON audits(started_at);

	-- Audit rows, seq keeps arrival order
	CREATE TABLE IF NOT EXISTS records (
		audit_id INTEGER NOT NULL REFERENCES audits(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		url TEXT NOT NULL,
		status TEXT NOT NULL,
		title TEXT,
		h1 TEXT,
		canonical TEXT,
		robots_meta TEXT,
		hreflang_count INTEGER NOT NULL DEFAULT 0,
		duplicate_title INTEGER NOT NULL DEFAULT 0,
		duplicate_h1 INTEGER NOT NULL DEFAULT 0,
		note TEXT,
		degraded INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (audit_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_records_url ON records(url);
	`

	_, err := adb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveAudit stores a finalized report and its records in one transaction.
// It returns the database ID of the audit.
func (adb *AuditDB) SaveAudit(ctx context.Context, report *model.AuditReport) (int64, error) {
	summaryJSON, err := json.Marshal(report.Summarize())
	if err != nil {
		return 0, fmt.Errorf("failed to serialize summary: %w", err)
	}

	tx, err := adb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO audits (session_id, domain, start_url, completed, started_at, finished_at, summary)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		report.SessionID,
		report.Domain,
		report.StartURL,
		report.Completed,
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
		string(summaryJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save audit: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO records (audit_id, seq, url, status, title, h1, canonical, robots_meta,
		hreflang_count, duplicate_title, duplicate_h1, note, degraded)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range report.Records {
		if _, err := stmt.ExecContext(ctx,
			id, i,
			rec.URL,
			rec.Status,
			rec.Title,
			rec.H1,
			rec.Canonical,
			rec.RobotsMeta,
			rec.HreflangCount,
			rec.DuplicateTitle,
			rec.DuplicateH1,
			rec.Note,
			rec.Degraded,
		); err != nil {
			return 0, fmt.Errorf("failed to save record %s: %w", rec.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit audit: %w", err)
	}
	return id, nil
}

// ListDomains returns every domain with at least one stored audit.
func (adb *AuditDB) ListDomains(ctx context.Context) ([]string, error) {
	rows, err := adb.db.QueryContext(ctx, `SELECT DISTINCT domain FROM audits ORDER BY domain`)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var domain string
		if err := rows.Scan(&domain); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, domain)
	}

	return domains, rows.Err()
}

// AuditMetadata contains summary information about a stored audit.
// This is used for displaying history without loading the records.
type AuditMetadata struct {
	// ID is the unique identifier of the audit in the database.
	ID int64

	// SessionID is the crawl session ID.
	SessionID string

	// Domain is the audited registrable domain.
	Domain string

	// StartURL is the seed URL of the session.
	StartURL string

	// Completed is true when the crawl was not interrupted.
	Completed bool

	// StartedAt is when the crawl started.
	StartedAt time.Time

	// Summary contains the record counts of the audit.
	Summary model.Summary
}

// GetAuditHistory returns the audits of a domain, newest first.
func (adb *AuditDB) GetAuditHistory(ctx context.Context, domain string) ([]AuditMetadata, error) {
	rows, err := adb.db.QueryContext(ctx, `
	SELECT id, session_id, domain, start_url, completed, started_at, summary
	FROM audits
	WHERE domain = ?
	ORDER BY started_at DESC, id DESC
	`, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit history: %w", err)
	}
	defer rows.Close()

	var results []AuditMetadata
	for rows.Next() {
		var meta AuditMetadata
		var startedAt string
		var summaryJSON sql.NullString

		if err := rows.Scan(&meta.ID, &meta.SessionID, &meta.Domain, &meta.StartURL,
			&meta.Completed, &startedAt, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.StartedAt = parseTimestamp(startedAt)
		if summaryJSON.Valid && summaryJSON.String != "" {
			// A malformed summary leaves zero counts.
			_ = json.Unmarshal([]byte(summaryJSON.String), &meta.Summary)
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetAuditByID loads an audit and its records. It returns nil, nil when
// no audit has the ID.
func (adb *AuditDB) GetAuditByID(ctx context.Context, id int64) (*model.AuditReport, error) {
	var report model.AuditReport
	var startedAt, finishedAt string

	err := adb.db.QueryRowContext(ctx, `
	SELECT session_id, domain, start_url, completed, started_at, finished_at
	FROM audits
	WHERE id = ?
	`, id).Scan(
		&report.SessionID,
		&report.Domain,
		&report.StartURL,
		&report.Completed,
		&startedAt,
		&finishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit: %w", err)
	}

	report.StartedAt = parseTimestamp(startedAt)
	report.FinishedAt = parseTimestamp(finishedAt)

	records, err := adb.getRecords(ctx, id)
	if err != nil {
		return nil, err
	}
	report.Records = records

	return &report, nil
}

func (adb *AuditDB) getRecords(ctx context.Context, auditID int64) ([]model.PageRecord, error) {
	rows, err := adb.db.QueryContext(ctx, `
	SELECT url, status, title, h1, canonical, robots_meta, hreflang_count,
		duplicate_title, duplicate_h1, note, degraded
	FROM records
	WHERE audit_id = ?
	ORDER BY seq
	`, auditID)
	if err != nil {
		return nil, fmt.Errorf("failed to get records: %w", err)
	}
	defer rows.Close()

	records := make([]model.PageRecord, 0)
	for rows.Next() {
		var rec model.PageRecord
		if err := rows.Scan(
			&rec.URL,
			&rec.Status,
			&rec.Title,
			&rec.H1,
			&rec.Canonical,
			&rec.RobotsMeta,
			&rec.HreflangCount,
			&rec.DuplicateTitle,
			&rec.DuplicateH1,
			&rec.Note,
			&rec.Degraded,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetLatestAudits loads up to n audits of a domain with their records,
// newest first.
func (adb *AuditDB) GetLatestAudits(ctx context.Context, domain string, n int) ([]*model.AuditReport, error) {
	history, err := adb.GetAuditHistory(ctx, domain)
	if err != nil {
		return nil, err
	}
	if len(history) > n {
		history = history[:n]
	}

	reports := make([]*model.AuditReport, 0, len(history))
	for _, meta := range history {
		report, err := adb.GetAuditByID(ctx, meta.ID)
		if err != nil {
			return nil, err
		}
		if report != nil {
			reports = append(reports, report)
		}
	}
	return reports, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,          // Format written by formatTimestamp
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// timestampLayout is fixed width so that stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
