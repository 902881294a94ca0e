package receiver

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/studiowebux/formpost/internal/migrations"
	"github.com/studiowebux/formpost/internal/types"
)

// Store records accepted uploads in SQLite
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the upload ledger at dbPath
func OpenStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open upload database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to upload database: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Save inserts one upload record
func (s *Store) Save(rec types.UploadRecord) error {
	receivedAt := rec.ReceivedAt
	if receivedAt == "" {
		receivedAt = time.Now().UTC().Format(time.RFC3339)
	}

	_, err := s.db.Exec(`
		INSERT INTO uploads (id, received_at, file_name, saved_path, size, json_data)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, receivedAt, rec.FileName, rec.SavedPath, rec.Size, rec.JSONData)
	if err != nil {
		return fmt.Errorf("failed to save upload record: %w", err)
	}

	return nil
}

// List returns the most recent uploads first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]types.UploadRecord, error) {
	query := `
		SELECT id, received_at, file_name, saved_path, size, json_data
		FROM uploads
		ORDER BY received_at DESC, rowid DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load uploads: %w", err)
	}
	defer rows.Close()

	records := []types.UploadRecord{}
	for rows.Next() {
		var rec types.UploadRecord
		if err := rows.Scan(&rec.ID, &rec.ReceivedAt, &rec.FileName, &rec.SavedPath, &rec.Size, &rec.JSONData); err != nil {
			return nil, fmt.Errorf("failed to scan upload record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// SchemaVersion returns the applied migration version
func (s *Store) SchemaVersion() (int, error) {
	return migrations.GetCurrentVersion(s.db)
}

// RollbackTo reverts schema migrations above target and returns the
// resulting version. Opening the store again re-applies them.
func (s *Store) RollbackTo(target int) (int, error) {
	if target < 0 {
		return 0, fmt.Errorf("invalid target version %d", target)
	}
	if err := migrations.Rollback(s.db, target); err != nil {
		return 0, err
	}
	return s.SchemaVersion()
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
