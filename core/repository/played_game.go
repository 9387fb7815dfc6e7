package repository

import (
	"context"
	"time"

	"github.com/janryu/janryu/core/entity"
)

// PlayedGameRepository stores the per-game records.
type PlayedGameRepository interface {
	// Create opens the record; a second create for the same game ID
	// returns ErrGameAlreadyExists.
	Create(ctx context.Context, game *entity.PlayedGame) error

	// Finish closes the record. Finishing an already-finished game is a
	// no-op so crash-replayed shutdowns stay safe.
	Finish(ctx context.Context, gameID string, endedAt time.Time, reason string, standings []entity.StandingRecord) error

	// ByGameID loads one record or ErrGameNotFound.
	ByGameID(ctx context.Context, gameID string) (*entity.PlayedGame, error)

	// ByPlayer lists records a named player sat in, newest first.
	ByPlayer(ctx context.Context, name string, limit, offset int) ([]*entity.PlayedGame, error)
}
