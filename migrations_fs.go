package trm

import (
	"embed"
	"io/fs"
)

// migrationsFS holds the delivery log schema, with sqlite variants under
// data/sql/migrations/sqlite.
//
//go:embed data/sql/migrations/*.sql data/sql/migrations/sqlite/*.sql
var migrationsFS embed.FS

// GetMigrationsFS returns the embedded migration tree rooted at the module.
func GetMigrationsFS() fs.FS {
	return migrationsFS
}
