// Package migrations embeds the SQL schema migrations for the PostgreSQL
// room store, mirroring the teacher's pkg/store/metadata/postgres/migrations
// embedding pattern.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
