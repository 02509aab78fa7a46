// Package migrations holds the PostgreSQL schema migrations of the landed cost tables.
package migrations

import "embed"

// FS contains every *.sql migration in this directory
//
//go:embed *.sql
var FS embed.FS
