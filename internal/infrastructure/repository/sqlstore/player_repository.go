package sqlstore

import (
	"context"
	"fmt"
	"sort"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	qb "github.com/riskibarqy/fpl-predictor/internal/platform/querybuilder"
)

var playerColumns = []string{
	"id",
	"team_id",
	"name",
	"web_name",
	"position",
	"chance_of_playing",
	"news",
	"total_points",
	"points_per_game",
	"form",
}

var playerUpsertSuffix = qb.OnConflictUpdate("id", playerColumns...)

type PlayerRepository struct {
	store *Store
}

func (r *PlayerRepository) List(ctx context.Context) ([]player.Player, error) {
	query, args, err := qb.Select(playerColumns...).Dialect(r.store.dialect).
		From("players").
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select players query: %w", err)
	}
	return r.selectPlayers(ctx, query, args)
}

// GetByIDs keeps the requested order and skips unknown ids.
func (r *PlayerRepository) GetByIDs(ctx context.Context, playerIDs []int64) ([]player.Player, error) {
	if len(playerIDs) == 0 {
		return []player.Player{}, nil
	}

	query, args, err := qb.Select(playerColumns...).Dialect(r.store.dialect).
		From("players").
		Where(qb.InInt64("id", playerIDs)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select players by ids query: %w", err)
	}
	found, err := r.selectPlayers(ctx, query, args)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]player.Player, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]player.Player, 0, len(playerIDs))
	for _, id := range playerIDs {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *PlayerRepository) selectPlayers(ctx context.Context, query string, args []any) ([]player.Player, error) {
	var rows []playerTableModel
	if err := r.store.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, crerr.Wrap(err, "select players")
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// ListMatchRecords returns records ordered by player then gameweek. Ids are
// queried in chunks so a full-league load stays within bind limits.
func (r *PlayerRepository) ListMatchRecords(ctx context.Context, playerIDs []int64) ([]player.MatchRecord, error) {
	var out []player.MatchRecord
	for start := 0; start < len(playerIDs); start += insertBatchSize {
		end := min(start+insertBatchSize, len(playerIDs))
		query, args, err := qb.Select(matchRecordColumns()...).Dialect(r.store.dialect).
			From("match_records").
			Where(qb.InInt64("player_id", playerIDs[start:end])).
			OrderBy("player_id", "gameweek", "opponent_team_id").
			ToSQL()
		if err != nil {
			return nil, fmt.Errorf("build select match records query: %w", err)
		}

		var rows []matchRecordTableModel
		if err := r.store.db.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, crerr.Wrap(err, "select match records")
		}
		for _, row := range rows {
			out = append(out, row.toDomain())
		}
	}
	sortMatchRecords(out)
	return out, nil
}

func (r *PlayerRepository) UpsertPlayers(ctx context.Context, players []player.Player) error {
	models := make([]playerTableModel, 0, len(players))
	for _, p := range players {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("validate player id=%d: %w", p.ID, err)
		}
		models = append(models, playerModelFrom(p))
	}
	return upsert(ctx, r.store, "players", models, playerUpsertSuffix)
}

// ReplaceMatchRecords swaps a player's whole history in one transaction.
func (r *PlayerRepository) ReplaceMatchRecords(ctx context.Context, playerID int64, records []player.MatchRecord) error {
	models := make([]matchRecordTableModel, 0, len(records))
	for _, rec := range records {
		rec.PlayerID = playerID
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("validate match record player=%d gameweek=%d: %w", playerID, rec.Gameweek, err)
		}
		models = append(models, matchRecordModelFrom(rec))
	}

	tx, err := r.store.db.BeginTxx(ctx, nil)
	if err != nil {
		return crerr.Wrap(err, "begin tx replace match records")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query, args, err := qb.DeleteFrom("match_records").Dialect(r.store.dialect).
		Where(qb.Eq("player_id", playerID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete match records query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return crerr.Wrapf(err, "delete match records player=%d", playerID)
	}
	if err := insertBatches(ctx, tx, r.store.dialect, "match_records", models, ""); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return crerr.Wrap(err, "commit replace match records tx")
	}
	return nil
}

func matchRecordColumns() []string {
	cols, _ := qb.Columns(matchRecordTableModel{})
	return cols
}

func sortMatchRecords(rows []player.MatchRecord) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].PlayerID != rows[j].PlayerID {
			return rows[i].PlayerID < rows[j].PlayerID
		}
		return rows[i].Gameweek < rows[j].Gameweek
	})
}
