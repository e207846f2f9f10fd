// Package migrations embeds the SQL schema migrations for gridflow's
// Postgres storage layer, discovered by bun's migrate.Migrations at
// startup.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
