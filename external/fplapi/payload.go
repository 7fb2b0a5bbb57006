package fplapi

import (
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

type bootstrapPayload struct {
	Teams    []teamItem    `json:"teams"`
	Elements []elementItem `json:"elements"`
}

type teamItem struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	ShortName           string `json:"short_name"`
	Position            int    `json:"position"`
	Strength            int    `json:"strength"`
	StrengthOverallHome int    `json:"strength_overall_home"`
	StrengthOverallAway int    `json:"strength_overall_away"`
}

type elementItem struct {
	ID                       int64     `json:"id"`
	Team                     int64     `json:"team"`
	FirstName                string    `json:"first_name"`
	SecondName               string    `json:"second_name"`
	WebName                  string    `json:"web_name"`
	ElementType              int       `json:"element_type"`
	ChanceOfPlayingNextRound *int      `json:"chance_of_playing_next_round"`
	News                     string    `json:"news"`
	TotalPoints              int       `json:"total_points"`
	PointsPerGame            flexFloat `json:"points_per_game"`
	Form                     flexFloat `json:"form"`
}

type elementSummaryPayload struct {
	History []historyItem `json:"history"`
}

type historyItem struct {
	Element         int64 `json:"element"`
	Fixture         int64 `json:"fixture"`
	OpponentTeam    int64 `json:"opponent_team"`
	Round           int   `json:"round"`
	WasHome         bool  `json:"was_home"`
	Minutes         int   `json:"minutes"`
	GoalsScored     int   `json:"goals_scored"`
	Assists         int   `json:"assists"`
	CleanSheets     int   `json:"clean_sheets"`
	GoalsConceded   int   `json:"goals_conceded"`
	OwnGoals        int   `json:"own_goals"`
	PenaltiesSaved  int   `json:"penalties_saved"`
	PenaltiesMissed int   `json:"penalties_missed"`
	YellowCards     int   `json:"yellow_cards"`
	RedCards        int   `json:"red_cards"`
	Saves           int   `json:"saves"`
	Bonus           int   `json:"bonus"`
	BPS             int   `json:"bps"`
	TotalPoints     int   `json:"total_points"`
}

type fixtureItem struct {
	ID          int64   `json:"id"`
	Event       *int    `json:"event"`
	TeamH       int64   `json:"team_h"`
	TeamA       int64   `json:"team_a"`
	TeamHScore  *int    `json:"team_h_score"`
	TeamAScore  *int    `json:"team_a_score"`
	KickoffTime *string `json:"kickoff_time"`
	Finished    bool    `json:"finished"`
}

// flexFloat decodes the API's decimal strings ("5.2") as well as numbers.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(raw []byte) error {
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if text == "" || text == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

func decode(raw []byte, target any) error {
	return sonic.Unmarshal(raw, target)
}
