package sqlstore

import (
	"database/sql"
	"time"

	"github.com/riskibarqy/fpl-predictor/internal/domain/fixture"
	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/domain/team"
)

type teamTableModel struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	ShortName string `db:"short_name"`
	Position  int    `db:"position"`
	Strength  int    `db:"strength"`
}

func teamModelFrom(t team.Team) teamTableModel {
	return teamTableModel{
		ID:        t.ID,
		Name:      t.Name,
		ShortName: t.ShortName,
		Position:  t.Position,
		Strength:  t.Strength,
	}
}

func (m teamTableModel) toDomain() team.Team {
	return team.Team{
		ID:        m.ID,
		Name:      m.Name,
		ShortName: m.ShortName,
		Position:  m.Position,
		Strength:  m.Strength,
	}
}

type playerTableModel struct {
	ID              int64         `db:"id"`
	TeamID          int64         `db:"team_id"`
	Name            string        `db:"name"`
	WebName         string        `db:"web_name"`
	Position        string        `db:"position"`
	ChanceOfPlaying sql.NullInt64 `db:"chance_of_playing"`
	News            string        `db:"news"`
	TotalPoints     int           `db:"total_points"`
	PointsPerGame   float64       `db:"points_per_game"`
	Form            float64       `db:"form"`
}

func playerModelFrom(p player.Player) playerTableModel {
	m := playerTableModel{
		ID:            p.ID,
		TeamID:        p.TeamID,
		Name:          p.Name,
		WebName:       p.WebName,
		Position:      string(p.Position),
		News:          p.News,
		TotalPoints:   p.TotalPoints,
		PointsPerGame: p.PointsPerGame,
		Form:          p.Form,
	}
	if p.ChanceOfPlaying != nil {
		m.ChanceOfPlaying = sql.NullInt64{Int64: int64(*p.ChanceOfPlaying), Valid: true}
	}
	return m
}

func (m playerTableModel) toDomain() player.Player {
	p := player.Player{
		ID:            m.ID,
		TeamID:        m.TeamID,
		Name:          m.Name,
		WebName:       m.WebName,
		Position:      player.Position(m.Position),
		News:          m.News,
		TotalPoints:   m.TotalPoints,
		PointsPerGame: m.PointsPerGame,
		Form:          m.Form,
	}
	if m.ChanceOfPlaying.Valid {
		chance := int(m.ChanceOfPlaying.Int64)
		p.ChanceOfPlaying = &chance
	}
	return p
}

type matchRecordTableModel struct {
	PlayerID        int64 `db:"player_id"`
	Gameweek        int   `db:"gameweek"`
	OpponentTeamID  int64 `db:"opponent_team_id"`
	WasHome         bool  `db:"was_home"`
	Minutes         int   `db:"minutes"`
	Goals           int   `db:"goals"`
	Assists         int   `db:"assists"`
	CleanSheet      bool  `db:"clean_sheet"`
	GoalsConceded   int   `db:"goals_conceded"`
	Saves           int   `db:"saves"`
	PenaltiesSaved  int   `db:"penalties_saved"`
	PenaltiesMissed int   `db:"penalties_missed"`
	YellowCards     int   `db:"yellow_cards"`
	RedCards        int   `db:"red_cards"`
	OwnGoals        int   `db:"own_goals"`
	Bonus           int   `db:"bonus"`
	BPS             int   `db:"bps"`
	TotalPoints     int   `db:"total_points"`
}

func matchRecordModelFrom(r player.MatchRecord) matchRecordTableModel {
	return matchRecordTableModel(r)
}

func (m matchRecordTableModel) toDomain() player.MatchRecord {
	return player.MatchRecord(m)
}

type fixtureTableModel struct {
	ID         int64         `db:"id"`
	Gameweek   int           `db:"gameweek"`
	HomeTeamID int64         `db:"home_team_id"`
	AwayTeamID int64         `db:"away_team_id"`
	KickoffAt  *time.Time    `db:"kickoff_at"`
	Finished   bool          `db:"finished"`
	HomeScore  sql.NullInt64 `db:"home_score"`
	AwayScore  sql.NullInt64 `db:"away_score"`
}

func fixtureModelFrom(f fixture.Fixture) fixtureTableModel {
	return fixtureTableModel{
		ID:         f.ID,
		Gameweek:   f.Gameweek,
		HomeTeamID: f.HomeTeamID,
		AwayTeamID: f.AwayTeamID,
		KickoffAt:  f.KickoffAt,
		Finished:   f.Finished,
		HomeScore:  nullInt(f.HomeScore),
		AwayScore:  nullInt(f.AwayScore),
	}
}

func (m fixtureTableModel) toDomain() fixture.Fixture {
	return fixture.Fixture{
		ID:         m.ID,
		Gameweek:   m.Gameweek,
		HomeTeamID: m.HomeTeamID,
		AwayTeamID: m.AwayTeamID,
		KickoffAt:  m.KickoffAt,
		Finished:   m.Finished,
		HomeScore:  intPtr(m.HomeScore),
		AwayScore:  intPtr(m.AwayScore),
	}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	out := int(v.Int64)
	return &out
}
