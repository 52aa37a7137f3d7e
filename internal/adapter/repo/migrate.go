package repo

import (
	"database/sql"
	"embed"
	"fmt"

	migrate "github.com/rubenv/sql-migrate"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

func migrationSource() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{FileSystem: migrationFS, Root: "migrations"}
}

// MigrateUp applies pending migrations and returns how many ran.
func MigrateUp(db *sql.DB) (int, error) {
	n, err := migrate.Exec(db, "mysql", migrationSource(), migrate.Up)
	if err != nil {
		return n, fmt.Errorf("migrate up: %w", err)
	}
	return n, nil
}

// MigrateDown rolls back at most steps migrations (0 means all).
func MigrateDown(db *sql.DB, steps int) (int, error) {
	n, err := migrate.ExecMax(db, "mysql", migrationSource(), migrate.Down, steps)
	if err != nil {
		return n, fmt.Errorf("migrate down: %w", err)
	}
	return n, nil
}
