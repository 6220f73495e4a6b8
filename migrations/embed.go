// Package migrations ships the SQL schema with the binaries.
package migrations

import "embed"

// FS holds every *.up.sql / *.down.sql pair, versioned by their numeric prefix
//
//go:embed *.sql
var FS embed.FS
