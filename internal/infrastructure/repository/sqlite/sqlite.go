// Package sqlite opens the single-file offline store and applies its schema.
package sqlite

import (
	"context"
	"embed"
	"errors"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fpl-predictor/internal/infrastructure/repository/sqlstore"
	qb "github.com/riskibarqy/fpl-predictor/internal/platform/querybuilder"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/otel/attribute"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DSN enables foreign keys and a busy timeout on every connection.
func DSN(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path == MemoryPath {
		path = MemoryPath
	}
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Open connects to the database at path and migrates it to the latest schema.
// SQLite serialises writers anyway, so the pool holds a single connection;
// this also keeps an in-memory database alive for the handle's lifetime.
func Open(ctx context.Context, path string) (*sqlx.DB, error) {
	db, err := otelsqlx.Open("sqlite", DSN(path),
		otelsql.WithAttributes(attribute.String("db.system", "sqlite")),
		otelsql.WithDBName(path),
	)
	if err != nil {
		return nil, crerr.Wrapf(err, "open sqlite %s", path)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, crerr.Wrapf(err, "ping sqlite %s", path)
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// MigrationSource exposes the embedded schema to the migration command.
func MigrationSource() (source.Driver, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, crerr.Wrap(err, "load embedded migrations")
	}
	return src, nil
}

// Migrate applies the embedded schema. The migrator is not closed because
// that would close db as well.
func Migrate(db *sqlx.DB) error {
	src, err := MigrationSource()
	if err != nil {
		return err
	}
	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		_ = src.Close()
		return crerr.Wrap(err, "create sqlite migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		_ = src.Close()
		return crerr.Wrap(err, "create migrator")
	}
	defer func() {
		_ = src.Close()
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return crerr.Wrap(err, "apply sqlite migrations")
	}
	return nil
}

// NewStore opens path and returns repositories bound to the ? dialect.
func NewStore(ctx context.Context, path string) (*sqlstore.Store, *sqlx.DB, error) {
	db, err := Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	return sqlstore.New(db, qb.Question), db, nil
}
