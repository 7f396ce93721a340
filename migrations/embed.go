// Package migrations carries the SQL schema files applied at startup.
package migrations

import "embed"

// FS holds every *.sql file in this directory, applied in name order.
//
//go:embed *.sql
var FS embed.FS
