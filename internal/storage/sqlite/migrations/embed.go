package migrations

import "embed"

// FS contains embedded SQLite migrations for instance storage.
//
//go:embed *.sql
var FS embed.FS
