package migrations

import "embed"

// FS contains the embedded journal schema.
//
//go:embed *.sql
var FS embed.FS
