package sql

import "embed"

// migrationsFS embeds the Postgres schema migrations, applied through
// golang-migrate against an embedded migrations source.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS
