// Package migrations встраивает SQL-миграции PostgreSQL.
package migrations

import "embed"

// FS — миграции в формате goose.
//
//go:embed *.sql
var FS embed.FS
