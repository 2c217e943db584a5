package postgres

import (
	"embed"

	pkgpostgres "github.com/bibbank/loanservicing/pkg/postgres"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate brings the schema at dsn up to date.
func Migrate(dsn string) error {
	return pkgpostgres.RunMigrations(dsn, migrationFiles, "migrations")
}

// MigrateDown drops the schema at dsn.
func MigrateDown(dsn string) error {
	return pkgpostgres.RunMigrationsDown(dsn, migrationFiles, "migrations")
}
