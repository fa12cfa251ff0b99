// Package migrations embeds the SQL schema so the binary is self-contained:
// local single-binary mode can bootstrap an empty SQLite graph file without
// shipping loose .sql files alongside it.
package migrations

import (
	"embed"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
)

// FS contains all *.sql migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS

// Apply runs every embedded migration in filename order. Statements are
// idempotent (CREATE IF NOT EXISTS), so re-running on an existing database is
// safe.
func Apply(db *sqlx.DB) error {
	entries, err := FS.ReadDir(".")
	if err != nil {
		return fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		sql, err := FS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(sql)); err != nil {
			return fmt.Errorf("migration %s failed: %w", name, err)
		}
	}
	return nil
}
