package team

import "fmt"

// Team is a club with its current league position.
type Team struct {
	ID        int64
	Name      string
	ShortName string
	// Position is the current table position, 0 when unknown.
	Position int
	// Strength is the upstream overall strength rating, used to derive a
	// provisional position when no standings are available.
	Strength int
}

func (t Team) Validate() error {
	if t.ID <= 0 {
		return fmt.Errorf("team id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("team name is required")
	}
	if t.Position < 0 {
		return fmt.Errorf("team position must be >= 0")
	}

	return nil
}
