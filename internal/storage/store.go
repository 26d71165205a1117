// Package storage provides SQLite-backed persistence for scan records,
// aggregate statistics, and user settings.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/verifyhq/verifyscan/internal/model"
)

// Store provides SQLite-based storage for scan results and statistics.
// It manages connection pooling and provides methods for CRUD operations.
//
// Design decision: We use a single database file for scans, statistics,
// and settings rather than separate files per concern. Scan records and
// statistics are updated together after every scan, and a single file
// keeps that pairing atomic under WAL.
type Store struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a Store at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dbDir, "verifyscan.db")

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

	// modernc.org/sqlite uses mode=rw to prevent creating new files and
	// mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (s *Store) createTables() error {
	schema := `
	-- Scan records store the outcome of each page scan. One row per tab:
	-- a rescan of the same tab replaces the previous record.
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id TEXT NOT NULL,
		tab_id TEXT NOT NULL,
		url TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		attempted INTEGER DEFAULT 0,
		completed INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		duration_ms INTEGER DEFAULT 0,
		results TEXT,
		UNIQUE(tab_id)
	);

	CREATE INDEX IF NOT EXISTS idx_scans_url ON scans(url);
	CREATE INDEX IF NOT EXISTS idx_scans_timestamp ON scans(timestamp);

	-- Aggregate statistics persist as a single JSON row so the in-memory
	-- tracker can be restored across sessions.
	CREATE TABLE IF NOT EXISTS statistics (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		stats_json TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Settings are simple key-value pairs.
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// SaveScanRecord inserts or replaces the scan record for a tab.
// Uses UPSERT so the newest scan of a tab overwrites the previous one.
func (s *Store) SaveScanRecord(ctx context.Context, record *model.ScanRecord) error {
	resultsJSON, err := json.Marshal(record.Results)
	if err != nil {
		return fmt.Errorf("failed to serialize results: %w", err)
	}

	query := `
	INSERT INTO scans (scan_id, tab_id, url, timestamp, attempted, completed, failed, duration_ms, results)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(tab_id) DO UPDATE SET
		scan_id = excluded.scan_id,
		url = excluded.url,
		timestamp = excluded.timestamp,
		attempted = excluded.attempted,
		completed = excluded.completed,
		failed = excluded.failed,
		duration_ms = excluded.duration_ms,
		results = excluded.results
	`

	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		record.TabID,
		record.URL,
		record.Timestamp.UTC().Format("2006-01-02 15:04:05"),
		record.Attempted,
		record.Completed,
		record.Failed,
		record.Duration.Milliseconds(),
		string(resultsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save scan record: %w", err)
	}

	return nil
}

// GetScanRecord retrieves the stored scan record for a tab.
// Returns nil without error when the tab has never been scanned.
func (s *Store) GetScanRecord(ctx context.Context, tabID string) (*model.ScanRecord, error) {
	query := `
	SELECT scan_id, tab_id, url, timestamp, attempted, completed, failed, duration_ms, results
	FROM scans
	WHERE tab_id = ?
	`

	var record model.ScanRecord
	var timestamp string
	var durationMS int64
	var resultsJSON sql.NullString

	err := s.db.QueryRowContext(ctx, query, tabID).Scan(
		&record.ID,
		&record.TabID,
		&record.URL,
		&timestamp,
		&record.Attempted,
		&record.Completed,
		&record.Failed,
		&durationMS,
		&resultsJSON,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan record: %w", err)
	}

	record.Timestamp = parseTimestamp(timestamp)
	record.Duration = time.Duration(durationMS) * time.Millisecond

	if resultsJSON.Valid && resultsJSON.String != "" {
		if err := json.Unmarshal([]byte(resultsJSON.String), &record.Results); err != nil {
			return nil, fmt.Errorf("failed to parse results: %w", err)
		}
	}

	return &record, nil
}

// DeleteScanRecord removes the stored record for a tab, if any.
func (s *Store) DeleteScanRecord(ctx context.Context, tabID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM scans WHERE tab_id = ?", tabID); err != nil {
		return fmt.Errorf("failed to delete scan record: %w", err)
	}
	return nil
}

// DeleteScansOlderThan removes per-tab records older than the given age.
// Returns the number of records removed.
func (s *Store) DeleteScansOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	query := `
	DELETE FROM scans
	WHERE timestamp < datetime('now', ?)
	`

	// SQLite datetime modifier format
	modifier := fmt.Sprintf("-%d seconds", int(age.Seconds()))

	result, err := s.db.ExecContext(ctx, query, modifier)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old scans: %w", err)
	}

	return result.RowsAffected()
}

// RecentScans returns the most recent scan records, newest first.
func (s *Store) RecentScans(ctx context.Context, limit int) ([]*model.ScanRecord, error) {
	query := `
	SELECT scan_id, tab_id, url, timestamp, attempted, completed, failed, duration_ms, results
	FROM scans
	ORDER BY timestamp DESC
	LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var records []*model.ScanRecord
	for rows.Next() {
		var record model.ScanRecord
		var timestamp string
		var durationMS int64
		var resultsJSON sql.NullString

		if err := rows.Scan(
			&record.ID,
			&record.TabID,
			&record.URL,
			&timestamp,
			&record.Attempted,
			&record.Completed,
			&record.Failed,
			&durationMS,
			&resultsJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		record.Timestamp = parseTimestamp(timestamp)
		record.Duration = time.Duration(durationMS) * time.Millisecond

		if resultsJSON.Valid && resultsJSON.String != "" {
			if err := json.Unmarshal([]byte(resultsJSON.String), &record.Results); err != nil {
				continue // Skip malformed records
			}
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}

// LoadStatistics restores the persisted statistics snapshot.
// Returns a fresh empty snapshot when none has been saved yet.
func (s *Store) LoadStatistics(ctx context.Context) (*model.Statistics, error) {
	var statsJSON string
	err := s.db.QueryRowContext(ctx, "SELECT stats_json FROM statistics WHERE id = 1").Scan(&statsJSON)
	if err == sql.ErrNoRows {
		return model.NewStatistics(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load statistics: %w", err)
	}

	var stats model.Statistics
	if err := json.Unmarshal([]byte(statsJSON), &stats); err != nil {
		return nil, fmt.Errorf("failed to parse statistics: %w", err)
	}
	if stats.ByType == nil {
		stats.ByType = make(map[model.ContentKind]int)
	}

	return &stats, nil
}

// SaveStatistics persists the full statistics snapshot.
// The snapshot is written whole; the last writer wins.
func (s *Store) SaveStatistics(ctx context.Context, stats *model.Statistics) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to serialize statistics: %w", err)
	}

	query := `
	INSERT INTO statistics (id, stats_json, updated_at)
	VALUES (1, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(id) DO UPDATE SET
		stats_json = excluded.stats_json,
		updated_at = CURRENT_TIMESTAMP
	`

	if _, err := s.db.ExecContext(ctx, query, string(statsJSON)); err != nil {
		return fmt.Errorf("failed to save statistics: %w", err)
	}

	return nil
}

// GetSetting returns the stored value for a settings key.
// Returns the empty string without error when the key is unset.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %q: %w", key, err)
	}
	return value, nil
}

// SetSetting stores a settings key-value pair, replacing any previous value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	query := `
	INSERT INTO settings (key, value, updated_at)
	VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = CURRENT_TIMESTAMP
	`

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set setting %q: %w", key, err)
	}

	return nil
}

// SeedDefaultSettings writes default values for any settings keys that
// are not yet present. Existing values are left untouched.
func (s *Store) SeedDefaultSettings(ctx context.Context, defaults map[string]string) error {
	query := `
	INSERT INTO settings (key, value)
	VALUES (?, ?)
	ON CONFLICT(key) DO NOTHING
	`

	for key, value := range defaults {
		if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
			return fmt.Errorf("failed to seed setting %q: %w", key, err)
		}
	}

	return nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
