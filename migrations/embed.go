package migrations

import "embed"

// Files holds the forward-only SQL migrations for the session database.
//
//go:embed *.sql
var Files embed.FS
