// Package migrations embeds the goose SQL migration files so the server can
// apply them at startup without a separate migration step.
package migrations

import "embed"

// FS holds the embedded migration files.
//
//go:embed *.sql
var FS embed.FS
