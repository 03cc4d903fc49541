package migrations

import "github.com/uptrace/bun/migrate"

// Migrations collects the schema steps; each file registers one, named after
// the file it lives in.
var Migrations = migrate.NewMigrations()
