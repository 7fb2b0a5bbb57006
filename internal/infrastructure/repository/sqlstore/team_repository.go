package sqlstore

import (
	"context"
	"fmt"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/fpl-predictor/internal/domain/team"
	qb "github.com/riskibarqy/fpl-predictor/internal/platform/querybuilder"
)

var teamColumns = []string{"id", "name", "short_name", "position", "strength"}

var teamUpsertSuffix = qb.OnConflictUpdate("id", teamColumns...)

type TeamRepository struct {
	store *Store
}

func (r *TeamRepository) List(ctx context.Context) ([]team.Team, error) {
	query, args, err := qb.Select(teamColumns...).Dialect(r.store.dialect).
		From("teams").
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select teams query: %w", err)
	}

	var rows []teamTableModel
	if err := r.store.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, crerr.Wrap(err, "select teams")
	}

	out := make([]team.Team, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// Positions serves the stored table as a standings provider. Teams with no
// recorded position are left out.
func (r *TeamRepository) Positions(ctx context.Context) (map[int64]int, error) {
	query, args, err := qb.Select("id", "position").Dialect(r.store.dialect).
		From("teams").
		Where(qb.Expr("position > ?", 0)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select team positions query: %w", err)
	}

	var rows []struct {
		ID       int64 `db:"id"`
		Position int   `db:"position"`
	}
	if err := r.store.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, crerr.Wrap(err, "select team positions")
	}

	out := make(map[int64]int, len(rows))
	for _, row := range rows {
		out[row.ID] = row.Position
	}
	return out, nil
}

func (r *TeamRepository) UpsertTeams(ctx context.Context, teams []team.Team) error {
	models := make([]teamTableModel, 0, len(teams))
	for _, t := range teams {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("validate team id=%d: %w", t.ID, err)
		}
		models = append(models, teamModelFrom(t))
	}
	return upsert(ctx, r.store, "teams", models, teamUpsertSuffix)
}
