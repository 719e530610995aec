// Package migrations embeds the goose SQL migrations of the credential store.
package migrations

import "embed"

// FS contains the Postgres migrations.
//
//go:embed *.sql
var FS embed.FS

// Dir is the directory within FS where migrations live.
const Dir = "."
