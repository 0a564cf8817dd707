package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// schemaMigration is one versioned schema change. Statements run inside
// a single transaction; tolerant entries ignore statement errors so a
// column added by a newer base schema does not break an older database.
type schemaMigration struct {
	version     int
	description string
	statements  []string
	tolerant    bool
}

// Append-only. Existing entries must never change once released.
var schemaMigrations = []schemaMigration{
	{
		version:     1,
		description: "base schema (chunks, vec_chunks, FTS5, query_log)",
	},
	{
		version:     2,
		description: "chunk provenance: doc_date and canonical amounts",
		statements: []string{
			"ALTER TABLE chunks ADD COLUMN doc_date TEXT",
			"ALTER TABLE chunks ADD COLUMN canonicals JSON",
		},
		tolerant: true,
	},
}

// Migrate brings the database up to the latest schema version.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var current int
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range schemaMigrations {
		if m.version <= current {
			continue
		}
		slog.Info("applying migration", "version", m.version, "description", m.description)

		if err := s.inTx(ctx, func(tx *sql.Tx) error {
			for _, stmt := range m.statements {
				if _, err := tx.Exec(stmt); err != nil {
					if m.tolerant {
						slog.Debug("migration statement skipped",
							"version", m.version, "sql", stmt, "error", err)
						continue
					}
					return err
				}
			}
			_, err := tx.Exec(
				"INSERT INTO schema_version (version, description) VALUES (?, ?)",
				m.version, m.description)
			return err
		}); err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
	}
	return nil
}
