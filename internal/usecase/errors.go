package usecase

import (
	"errors"
	"fmt"

	"github.com/riskibarqy/fpl-predictor/internal/domain/lineup"
	"github.com/riskibarqy/fpl-predictor/internal/engine"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// classifyEngineError lifts engine and domain sentinels into the usecase
// sentinels the transports map to status codes.
func classifyEngineError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, engine.ErrUnknownPlayer):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, lineup.ErrInvalidFormation), errors.Is(err, lineup.ErrInsufficientPlayers):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	default:
		return err
	}
}
