package app

import (
	"database/sql"
	"fmt"

	goose "github.com/pressly/goose/v3"

	migrations "github.com/guttosm/spimexpulse/db"
)

// RunMigrations applies every pending schema migration embedded in the binary.
func RunMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, migrations.MigrationsDir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
