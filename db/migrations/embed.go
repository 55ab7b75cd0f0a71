// Package migrations embeds the schema migrations so the server binary can
// migrate a database without the SQL files on disk.
package migrations

import "embed"

// FS holds every *.up.sql and *.down.sql file in this directory.
//
//go:embed *.sql
var FS embed.FS
