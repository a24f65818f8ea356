package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Open opens a bun database for driver. postgres and pgx use lib/pq; sqlite
// and sqlite3 use go-sqlite3.
func Open(driver string, dsn string) (*bun.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, storeError("sqlstore: dsn is required", goerrors.CategoryBadInput, nil)
	}

	var (
		sqlDriver string
		dialect   schema.Dialect
	)
	switch strings.TrimSpace(strings.ToLower(driver)) {
	case "postgres", "postgresql", "pgx":
		sqlDriver = DriverPostgres
		dialect = pgdialect.New()
	case "sqlite", "sqlite3":
		sqlDriver = DriverSQLite
		dialect = sqlitedialect.New()
	default:
		return nil, storeError(
			fmt.Sprintf("sqlstore: unsupported driver %q", driver),
			goerrors.CategoryBadInput,
			map[string]any{"driver": driver},
		)
	}

	sqlDB, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, storeWrapError(err, "sqlstore: open database", map[string]any{"driver": sqlDriver})
	}
	if sqlDriver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	return bun.NewDB(sqlDB, dialect), nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
