package history

import (
	"database/sql"
	"fmt"
)

type migration struct {
	version int
	name    string
	up      string
}

// migrations run in order; applied versions are recorded in schema_migrations.
var migrations = []migration{
	{
		version: 1,
		name:    "create_runs_table",
		up: `
			CREATE TABLE IF NOT EXISTS runs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				started_ms INTEGER NOT NULL,
				finished_ms INTEGER NOT NULL,
				target_bytes INTEGER NOT NULL,
				output_format TEXT NOT NULL,
				naming TEXT NOT NULL,
				max_attempts INTEGER NOT NULL,
				output_dir TEXT NOT NULL,
				total INTEGER NOT NULL,
				copied INTEGER NOT NULL,
				compressed INTEGER NOT NULL,
				failed INTEGER NOT NULL,
				target_missed INTEGER NOT NULL,
				bytes_before INTEGER NOT NULL,
				bytes_after INTEGER NOT NULL,
				cancelled BOOLEAN NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_runs_started
			ON runs(started_ms DESC);
		`,
	},
	{
		version: 2,
		name:    "create_outcomes_table",
		up: `
			CREATE TABLE IF NOT EXISTS outcomes (
				run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
				idx INTEGER NOT NULL,
				rel_path TEXT NOT NULL,
				output_path TEXT NOT NULL,
				status TEXT NOT NULL,
				format TEXT NOT NULL,
				original_bytes INTEGER NOT NULL,
				final_bytes INTEGER NOT NULL,
				param INTEGER,
				method INTEGER,
				attempts INTEGER NOT NULL,
				target_met BOOLEAN NOT NULL,
				error_kind TEXT NOT NULL,
				error TEXT NOT NULL,
				elapsed_ms INTEGER NOT NULL,
				PRIMARY KEY (run_id, idx)
			);
		`,
	},
	{
		version: 3,
		name:    "add_runs_skipped",
		up:      `ALTER TABLE runs ADD COLUMN skipped INTEGER NOT NULL DEFAULT 0;`,
	},
}

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	currentVersion := 0
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.up); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to execute migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}
	}

	return nil
}
