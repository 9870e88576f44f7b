// Package migrations ships the SQL schema with the binary.
package migrations

import "embed"

// FS holds every migration file, applied in lexical order.
//
//go:embed *.sql
var FS embed.FS
