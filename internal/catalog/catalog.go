// Package catalog keeps a local history of created backups in SQLite.
package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Catalog wraps the backup history database
type Catalog struct {
	db *sql.DB
}

// Record represents one backup in the history
type Record struct {
	ID              string
	Filename        string
	SizeBytes       int64
	FileCount       int
	CreatedAt       time.Time
	DestinationType string
	DestinationPath string
	Status          string
	ErrorMessage    string
	CreatedBy       string
}

// Open opens (or creates) the catalog database and applies migrations
func Open(path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}

	dsn, err := buildSQLiteDSN(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping catalog: %w", err)
	}

	c := &Catalog{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return c, nil
}

// Close closes the catalog database
func (c *Catalog) Close() error {
	return c.db.Close()
}

func buildSQLiteDSN(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve catalog path: %w", err)
	}

	absPath = strings.ReplaceAll(absPath, "\\", "/")

	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", absPath), nil
}

// Insert stores a new backup record
func (c *Catalog) Insert(record *Record) error {
	_, err := c.db.Exec(`
		INSERT INTO backups (id, filename, size_bytes, file_count, created_at,
			destination_type, destination_path, status, error_message, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Filename, record.SizeBytes, record.FileCount,
		record.CreatedAt.UTC().Format(time.RFC3339),
		record.DestinationType, record.DestinationPath,
		record.Status, record.ErrorMessage, record.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert backup record: %w", err)
	}
	return nil
}

// List returns records newest first, up to limit (0 = all)
func (c *Catalog) List(limit int) ([]*Record, error) {
	query := `
		SELECT id, filename, size_bytes, file_count, created_at,
			destination_type, destination_path, status, error_message, created_by
		FROM backups
		ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query backup records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.SizeBytes, &rec.FileCount,
			&createdAt, &rec.DestinationType, &rec.DestinationPath,
			&rec.Status, &rec.ErrorMessage, &rec.CreatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan backup record: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			rec.CreatedAt = t
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// MarkDeleted flags all records for a filename as deleted
func (c *Catalog) MarkDeleted(filename string) error {
	_, err := c.db.Exec(`UPDATE backups SET status = 'deleted' WHERE filename = ?`, filename)
	if err != nil {
		return fmt.Errorf("failed to mark backup deleted: %w", err)
	}
	return nil
}

var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
			CREATE TABLE IF NOT EXISTS backups (
				id TEXT PRIMARY KEY,
				filename TEXT NOT NULL,
				size_bytes INTEGER NOT NULL DEFAULT 0,
				file_count INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				destination_type TEXT NOT NULL DEFAULT '',
				destination_path TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'completed',
				error_message TEXT NOT NULL DEFAULT '',
				created_by TEXT NOT NULL DEFAULT ''
			);
			CREATE INDEX IF NOT EXISTS idx_backups_created_at ON backups(created_at);
		`,
	},
}

func (c *Catalog) migrate() error {
	if _, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := c.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return err
		}
		applied[version] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, migration := range migrations {
		if applied[migration.version] {
			continue
		}
		if _, err := c.db.Exec(migration.sql); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.version, err)
		}
		if _, err := c.db.Exec(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
			migration.version, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.version, err)
		}
	}

	return nil
}
