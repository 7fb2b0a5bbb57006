package sqlstore

import (
	"context"
	"fmt"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/fpl-predictor/internal/domain/fixture"
	qb "github.com/riskibarqy/fpl-predictor/internal/platform/querybuilder"
)

var fixtureColumns = []string{
	"id",
	"gameweek",
	"home_team_id",
	"away_team_id",
	"kickoff_at",
	"finished",
	"home_score",
	"away_score",
}

var fixtureUpsertSuffix = qb.OnConflictUpdate("id", fixtureColumns...)

type FixtureRepository struct {
	store *Store
}

// List returns fixtures ordered by gameweek, then id.
func (r *FixtureRepository) List(ctx context.Context) ([]fixture.Fixture, error) {
	query, args, err := qb.Select(fixtureColumns...).Dialect(r.store.dialect).
		From("fixtures").
		OrderBy("gameweek", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select fixtures query: %w", err)
	}

	var rows []fixtureTableModel
	if err := r.store.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, crerr.Wrap(err, "select fixtures")
	}

	out := make([]fixture.Fixture, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *FixtureRepository) UpsertFixtures(ctx context.Context, fixtures []fixture.Fixture) error {
	models := make([]fixtureTableModel, 0, len(fixtures))
	for _, f := range fixtures {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("validate fixture: %w", err)
		}
		models = append(models, fixtureModelFrom(f))
	}
	return upsert(ctx, r.store, "fixtures", models, fixtureUpsertSuffix)
}
