// Package sqlstore implements the domain repositories on top of sqlx. The
// same code serves PostgreSQL and SQLite; only the bind dialect differs.
package sqlstore

import (
	"context"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	qb "github.com/riskibarqy/fpl-predictor/internal/platform/querybuilder"
)

// insertBatchSize bounds the bind parameters of one multi-row insert well
// below both drivers' limits.
const insertBatchSize = 200

type Store struct {
	db      *sqlx.DB
	dialect qb.Dialect
}

func New(db *sqlx.DB, dialect qb.Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

func (s *Store) Teams() *TeamRepository {
	return &TeamRepository{store: s}
}

func (s *Store) Players() *PlayerRepository {
	return &PlayerRepository{store: s}
}

func (s *Store) Fixtures() *FixtureRepository {
	return &FixtureRepository{store: s}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// upsert writes models in batches inside one transaction.
func upsert[T any](ctx context.Context, s *Store, table string, models []T, suffix string) error {
	if len(models) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return crerr.Wrapf(err, "begin tx upsert %s", table)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := insertBatches(ctx, tx, s.dialect, table, models, suffix); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return crerr.Wrapf(err, "commit upsert %s tx", table)
	}
	return nil
}

func insertBatches[T any](ctx context.Context, tx *sqlx.Tx, dialect qb.Dialect, table string, models []T, suffix string) error {
	for start := 0; start < len(models); start += insertBatchSize {
		end := min(start+insertBatchSize, len(models))
		query, args, err := qb.InsertModels(dialect, table, models[start:end], suffix)
		if err != nil {
			return crerr.Wrapf(err, "build insert %s query", table)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return crerr.Wrapf(err, "insert %s rows %d-%d", table, start, end-1)
		}
	}
	return nil
}
