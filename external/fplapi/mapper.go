package fplapi

import (
	"strings"
	"time"

	"github.com/riskibarqy/fpl-predictor/internal/domain/fixture"
	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/domain/team"
	"github.com/riskibarqy/fpl-predictor/internal/usecase"
)

// mapBootstrap skips elements outside the four playing positions, such as
// managers.
func mapBootstrap(payload bootstrapPayload) usecase.ExternalBootstrap {
	out := usecase.ExternalBootstrap{
		Teams:   make([]team.Team, 0, len(payload.Teams)),
		Players: make([]player.Player, 0, len(payload.Elements)),
	}
	for _, item := range payload.Teams {
		out.Teams = append(out.Teams, mapTeam(item))
	}
	for _, item := range payload.Elements {
		p, ok := mapPlayer(item)
		if !ok {
			out.Skipped++
			continue
		}
		out.Players = append(out.Players, p)
	}
	return out
}

// mapTeam blends the three strength ratings into one, used only to order
// teams when no league table is available.
func mapTeam(item teamItem) team.Team {
	return team.Team{
		ID:        item.ID,
		Name:      strings.TrimSpace(item.Name),
		ShortName: strings.TrimSpace(item.ShortName),
		Position:  max(item.Position, 0),
		Strength:  (item.Strength + item.StrengthOverallHome + item.StrengthOverallAway) / 3,
	}
}

func mapPlayer(item elementItem) (player.Player, bool) {
	position, ok := player.PositionFromElementType(item.ElementType)
	if !ok || item.ID <= 0 {
		return player.Player{}, false
	}

	p := player.Player{
		ID:            item.ID,
		TeamID:        item.Team,
		Name:          strings.TrimSpace(item.FirstName + " " + item.SecondName),
		WebName:       strings.TrimSpace(item.WebName),
		Position:      position,
		News:          strings.TrimSpace(item.News),
		TotalPoints:   item.TotalPoints,
		PointsPerGame: float64(item.PointsPerGame),
		Form:          float64(item.Form),
	}
	if item.ChanceOfPlayingNextRound != nil {
		chance := min(max(*item.ChanceOfPlayingNextRound, 0), 100)
		p.ChanceOfPlaying = &chance
	}
	return p, true
}

// mapHistory drops rows without a gameweek, which the API emits for
// postponed fixtures.
func mapHistory(playerID int64, items []historyItem) []player.MatchRecord {
	out := make([]player.MatchRecord, 0, len(items))
	for _, item := range items {
		if item.Round <= 0 {
			continue
		}
		out = append(out, player.MatchRecord{
			PlayerID:        playerID,
			Gameweek:        item.Round,
			OpponentTeamID:  item.OpponentTeam,
			WasHome:         item.WasHome,
			Minutes:         item.Minutes,
			Goals:           item.GoalsScored,
			Assists:         item.Assists,
			CleanSheet:      item.CleanSheets > 0,
			GoalsConceded:   item.GoalsConceded,
			Saves:           item.Saves,
			PenaltiesSaved:  item.PenaltiesSaved,
			PenaltiesMissed: item.PenaltiesMissed,
			YellowCards:     item.YellowCards,
			RedCards:        item.RedCards,
			OwnGoals:        item.OwnGoals,
			Bonus:           item.Bonus,
			BPS:             item.BPS,
			TotalPoints:     item.TotalPoints,
		})
	}
	return out
}

// mapFixtures keeps unscheduled fixtures with gameweek 0.
func mapFixtures(items []fixtureItem) []fixture.Fixture {
	out := make([]fixture.Fixture, 0, len(items))
	for _, item := range items {
		f := fixture.Fixture{
			ID:         item.ID,
			HomeTeamID: item.TeamH,
			AwayTeamID: item.TeamA,
			Finished:   item.Finished,
			HomeScore:  item.TeamHScore,
			AwayScore:  item.TeamAScore,
			KickoffAt:  parseKickoff(item.KickoffTime),
		}
		if item.Event != nil {
			f.Gameweek = *item.Event
		}
		out = append(out, f)
	}
	return out
}

func parseKickoff(raw *string) *time.Time {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(*raw))
	if err != nil {
		return nil
	}
	utc := parsed.UTC()
	return &utc
}
