// Package migrations holds the bun migrations for the quiz library and results archive.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
