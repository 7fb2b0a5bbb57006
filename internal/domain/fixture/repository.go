package fixture

import "context"

// Repository exposes fixture read operations.
type Repository interface {
	List(ctx context.Context) ([]Fixture, error)
}

// Writer is used by the importer.
type Writer interface {
	UpsertFixtures(ctx context.Context, fixtures []Fixture) error
}
