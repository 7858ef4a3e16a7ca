// Package migrations embeds the SQL migration files for the bundled sample
// schema so they can be used by the goose programmatic API in tests, the CLI
// migrate command and server bootstrap.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

// FS holds the migration files of every supported dialect, one directory each.
//
//go:embed postgres/*.sql sqlite/*.sql mysql/*.sql
var FS embed.FS

var gooseDialects = map[string]goose.Dialect{
	"postgres": goose.DialectPostgres,
	"sqlite":   goose.DialectSQLite3,
	"mysql":    goose.DialectMySQL,
}

// ForDialect returns the goose dialect and migration files for a repo dialect name.
func ForDialect(name string) (goose.Dialect, fs.FS, error) {
	d, ok := gooseDialects[name]
	if !ok {
		return "", nil, fmt.Errorf("migrations: no migrations for dialect %q", name)
	}
	sub, err := fs.Sub(FS, name)
	if err != nil {
		return "", nil, fmt.Errorf("migrations: %w", err)
	}
	return d, sub, nil
}

// NewProvider builds a goose provider for db using the migrations of dialect name.
func NewProvider(db *sql.DB, name string) (*goose.Provider, error) {
	d, fsys, err := ForDialect(name)
	if err != nil {
		return nil, err
	}
	p, err := goose.NewProvider(d, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("migrations: create goose provider: %w", err)
	}
	return p, nil
}
