package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/janryu/janryu/core/entity"
	"github.com/janryu/janryu/core/repository"
)

// MemoryPlayedGames keeps records in a map. It backs tests and storage-less
// dev runs with the same semantics the mongo implementation has.
type MemoryPlayedGames struct {
	mu    sync.RWMutex
	games map[string]*entity.PlayedGame
}

func NewMemoryPlayedGames() *MemoryPlayedGames {
	return &MemoryPlayedGames{games: make(map[string]*entity.PlayedGame)}
}

func (r *MemoryPlayedGames) Create(_ context.Context, game *entity.PlayedGame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.games[game.GameID]; exists {
		return repository.ErrGameAlreadyExists
	}
	cp := *game
	r.games[game.GameID] = &cp
	return nil
}

func (r *MemoryPlayedGames) Finish(_ context.Context, gameID string, endedAt time.Time, reason string, standings []entity.StandingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pg, exists := r.games[gameID]
	if !exists {
		return repository.ErrGameNotFound
	}
	if pg.Finished() {
		return nil
	}
	pg.Finish(endedAt, reason, standings)
	return nil
}

func (r *MemoryPlayedGames) ByGameID(_ context.Context, gameID string) (*entity.PlayedGame, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pg, exists := r.games[gameID]
	if !exists {
		return nil, repository.ErrGameNotFound
	}
	cp := *pg
	return &cp, nil
}

func (r *MemoryPlayedGames) ByPlayer(_ context.Context, name string, limit, offset int) ([]*entity.PlayedGame, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var games []*entity.PlayedGame
	for _, pg := range r.games {
		for _, seat := range pg.Seats {
			if seat.Name == name {
				cp := *pg
				games = append(games, &cp)
				break
			}
		}
	}
	sort.Slice(games, func(i, j int) bool {
		return games[i].StartedAt.After(games[j].StartedAt)
	})

	if offset >= len(games) {
		return nil, nil
	}
	games = games[offset:]
	if limit > 0 && limit < len(games) {
		games = games[:limit]
	}
	return games, nil
}
