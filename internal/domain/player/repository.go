package player

import "context"

// Repository describes player reads needed by the prediction services.
type Repository interface {
	List(ctx context.Context) ([]Player, error)
	GetByIDs(ctx context.Context, playerIDs []int64) ([]Player, error)
	// ListMatchRecords returns records ordered by player then gameweek.
	ListMatchRecords(ctx context.Context, playerIDs []int64) ([]MatchRecord, error)
}

// Writer is used by the importer to persist upstream data.
type Writer interface {
	UpsertPlayers(ctx context.Context, players []Player) error
	ReplaceMatchRecords(ctx context.Context, playerID int64, records []MatchRecord) error
}
