package standing

import "context"

// Provider returns the current table position per team id.
type Provider interface {
	Positions(ctx context.Context) (map[int64]int, error)
}

// Static serves a fixed position table.
type Static map[int64]int

func (s Static) Positions(context.Context) (map[int64]int, error) {
	out := make(map[int64]int, len(s))
	for id, pos := range s {
		out[id] = pos
	}
	return out, nil
}
