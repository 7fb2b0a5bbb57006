package id

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator creates opaque IDs for simulation runs and snapshot versions.
type Generator interface {
	NewID() (string, error)
}

// UUIDGenerator issues time-ordered UUIDv7 strings so run ids sort by
// creation time in logs.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) NewID() (string, error) {
	v, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return v.String(), nil
}

// Sequence is a deterministic generator for tests and offline runs.
type Sequence struct {
	Prefix string
	next   atomic.Int64
}

func (s *Sequence) NewID() (string, error) {
	return fmt.Sprintf("%s%d", s.Prefix, s.next.Add(1)), nil
}
