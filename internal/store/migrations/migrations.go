// Package migrations embeds the SQL migration files for the drafts database.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
