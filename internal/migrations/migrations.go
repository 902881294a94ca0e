package migrations

import (
	"database/sql"
	"fmt"
)

// Migration represents a single database migration
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: 1,
		Name:    "Add uploads listing index",
		Up: `
			CREATE INDEX IF NOT EXISTS idx_uploads_received_at ON uploads(received_at DESC);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_uploads_received_at;
		`,
	},
	{
		Version: 2,
		Name:    "Add uploads file name index",
		Up: `
			CREATE INDEX IF NOT EXISTS idx_uploads_file_name ON uploads(file_name);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_uploads_file_name;
		`,
	},
}

// InitSchema creates the base tables. Migrations only add to them.
func InitSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS uploads (
		id TEXT PRIMARY KEY,
		received_at TEXT NOT NULL,
		file_name TEXT NOT NULL,
		saved_path TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		json_data TEXT NOT NULL
	);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// Run executes all pending migrations on the database. Each migration is
// applied and recorded in one transaction.
func Run(db *sql.DB) error {
	if err := InitSchema(db); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	pending, err := Pending(db)
	if err != nil {
		return err
	}

	for _, m := range pending {
		err := inTx(db, func(tx *sql.Tx) error {
			if _, err := tx.Exec(m.Up); err != nil {
				return err
			}
			_, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.Version, m.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Name, err)
		}
	}

	return nil
}

// Pending lists migrations newer than the recorded version
func Pending(db *sql.DB) ([]Migration, error) {
	current, err := GetCurrentVersion(db)
	if err != nil {
		return nil, fmt.Errorf("failed to get current migration version: %w", err)
	}

	var pending []Migration
	for _, m := range AllMigrations {
		if m.Version > current {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// Rollback reverts applied migrations, newest first, until the schema is at
// target. The uploads table itself is never dropped.
func Rollback(db *sql.DB, target int) error {
	current, err := GetCurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	for i := len(AllMigrations) - 1; i >= 0; i-- {
		m := AllMigrations[i]
		if m.Version <= target || m.Version > current {
			continue
		}

		err := inTx(db, func(tx *sql.Tx) error {
			if _, err := tx.Exec(m.Down); err != nil {
				return err
			}
			_, err := tx.Exec("DELETE FROM schema_migrations WHERE version = ?", m.Version)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to roll back migration %d (%s): %w", m.Version, m.Name, err)
		}
	}

	return nil
}

// GetCurrentVersion returns the current database schema version
func GetCurrentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func inTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
