package team

import "context"

// Repository describes team reads needed by the snapshot builder.
type Repository interface {
	List(ctx context.Context) ([]Team, error)
}

type Writer interface {
	UpsertTeams(ctx context.Context, teams []Team) error
}
