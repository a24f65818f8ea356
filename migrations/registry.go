// Package migrations exposes the embedded delivery log schema to migration
// runners such as go-persistence-bun.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	trm "github.com/goliatone/go-trm"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	// SourceLabel names the delivery log schema for runners that track
	// several migration sources.
	SourceLabel = "go-trm"

	// DeliveryTable is the table created by the first migration.
	DeliveryTable = "trm_webhook_deliveries"
)

const schemaRoot = "data/sql/migrations"

// Schema is the delivery log migration tree for one dialect. Up lists the
// forward migrations in apply order; each has a matching .down.sql file.
type Schema struct {
	Dialect string
	Path    string
	FS      fs.FS
	Up      []string
}

// RegisterFunc receives the schema tree of one dialect.
type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*registerConfig)

type registerConfig struct {
	dialects []string
}

// WithValidationTargets limits registration to the given dialects.
func WithValidationTargets(targets ...string) Option {
	return func(c *registerConfig) {
		var next []string
		for _, target := range targets {
			target = normalizeDialect(target)
			if target == "" || slices.Contains(next, target) {
				continue
			}
			next = append(next, target)
		}
		if len(next) > 0 {
			c.dialects = next
		}
	}
}

// Dialects lists the dialects that ship a delivery log schema.
func Dialects() []string {
	return []string{DialectPostgres, DialectSQLite}
}

// SchemaFor resolves the embedded delivery log schema for dialect.
func SchemaFor(dialect string) (Schema, error) {
	return schemaFrom(trm.GetMigrationsFS(), dialect)
}

// Register resolves the schema of every target dialect before handing any of
// them to registerFn, so a broken tree registers nothing.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) ([]Schema, error) {
	if registerFn == nil {
		return nil, fmt.Errorf("migrations: register function is required")
	}
	cfg := registerConfig{dialects: Dialects()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	schemas := make([]Schema, 0, len(cfg.dialects))
	for _, dialect := range cfg.dialects {
		schema, err := SchemaFor(dialect)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, schema)
	}

	for _, schema := range schemas {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := registerFn(ctx, schema.Dialect, SourceLabel, schema.FS); err != nil {
			return nil, fmt.Errorf("migrations: register %s (%s): %w", schema.Dialect, schema.Path, err)
		}
	}
	return schemas, nil
}

func schemaFrom(root fs.FS, dialect string) (Schema, error) {
	dialect = normalizeDialect(dialect)
	dir := schemaRoot
	switch dialect {
	case DialectPostgres:
	case DialectSQLite:
		dir = path.Join(schemaRoot, DialectSQLite)
	default:
		return Schema{}, fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}

	sub, err := fs.Sub(root, dir)
	if err != nil {
		return Schema{}, fmt.Errorf("migrations: resolve %s schema: %w", dialect, err)
	}
	up, err := fs.Glob(sub, "*.up.sql")
	if err != nil {
		return Schema{}, fmt.Errorf("migrations: glob %s: %w", dir, err)
	}
	if len(up) == 0 {
		return Schema{}, fmt.Errorf("migrations: %s schema %q has no *.up.sql files", dialect, dir)
	}
	slices.Sort(up)
	for _, name := range up {
		down := strings.TrimSuffix(name, ".up.sql") + ".down.sql"
		if _, err := fs.Stat(sub, down); err != nil {
			return Schema{}, fmt.Errorf("migrations: %s migration %s has no rollback: %w", dialect, name, err)
		}
	}
	return Schema{Dialect: dialect, Path: dir, FS: sub, Up: up}, nil
}

func normalizeDialect(dialect string) string {
	dialect = strings.ToLower(strings.TrimSpace(dialect))
	if dialect == "sqlite3" {
		return DialectSQLite
	}
	return dialect
}
