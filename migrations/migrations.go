// Package migrations embeds the library index schema for each supported driver.
package migrations

import "embed"

// Embedded migration files bundled at compile time, applied by db.MigrateUp.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
