// Package migrations embeds the versioned schema of the Postgres store.
package migrations

import "embed"

// FS holds the numbered up and down scripts.
//
//go:embed *.sql
var FS embed.FS
