// Package migrations holds the PostgreSQL schema, applied in filename order by cmd/migrate.
package migrations

import "embed"

// FS contains every NNN_description.sql migration.
//
//go:embed *.sql
var FS embed.FS
