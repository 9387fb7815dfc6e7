package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janryu/janryu/core/entity"
	"github.com/janryu/janryu/core/repository"
)

func seats() []entity.SeatRecord {
	return []entity.SeatRecord{
		{Seat: 0, Name: "akagi"},
		{Seat: 1, Name: "washizu"},
		{Seat: 2, Name: "Tsumogiri 1", IsAI: true},
		{Seat: 3, Name: "Tsumogiri 2", IsAI: true},
	}
}

func TestCreateRejectsDuplicateGameID(t *testing.T) {
	repo := NewMemoryPlayedGames()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, entity.NewPlayedGame("g1", seats())))
	err := repo.Create(ctx, entity.NewPlayedGame("g1", seats()))
	assert.ErrorIs(t, err, repository.ErrGameAlreadyExists)
}

func TestFinishIsIdempotent(t *testing.T) {
	repo := NewMemoryPlayedGames()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, entity.NewPlayedGame("g1", seats())))

	standings := []entity.StandingRecord{
		{Rank: 1, Seat: 1, Name: "washizu", Score: 41000},
		{Rank: 2, Seat: 0, Name: "akagi", Score: 29000},
		{Rank: 3, Seat: 2, Name: "Tsumogiri 1", Score: 18000},
		{Rank: 4, Seat: 3, Name: "Tsumogiri 2", Score: 12000},
	}
	ended := time.Now().Add(40 * time.Minute)
	require.NoError(t, repo.Finish(ctx, "g1", ended, "hanchan complete", standings))

	// A second finish must not clobber the first outcome.
	require.NoError(t, repo.Finish(ctx, "g1", ended.Add(time.Hour), "duplicate", nil))

	pg, err := repo.ByGameID(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCompleted, pg.Status)
	assert.Equal(t, "hanchan complete", pg.EndReason)
	assert.Len(t, pg.Standings, 4)
	assert.Equal(t, "washizu", pg.Standings[0].Name)
}

func TestFinishUnknownGame(t *testing.T) {
	repo := NewMemoryPlayedGames()
	err := repo.Finish(context.Background(), "nope", time.Now(), "x", nil)
	assert.ErrorIs(t, err, repository.ErrGameNotFound)
}

func TestAbortedGameKeepsStatus(t *testing.T) {
	repo := NewMemoryPlayedGames()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, entity.NewPlayedGame("g2", seats())))
	require.NoError(t, repo.Finish(ctx, "g2", time.Now(), entity.StatusAborted, nil))

	pg, err := repo.ByGameID(ctx, "g2")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAborted, pg.Status)
	assert.True(t, pg.Finished())
}

func TestByPlayerOrdersNewestFirst(t *testing.T) {
	repo := NewMemoryPlayedGames()
	ctx := context.Background()

	older := entity.NewPlayedGame("g-old", seats())
	older.StartedAt = time.Now().Add(-2 * time.Hour)
	newer := entity.NewPlayedGame("g-new", seats())

	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	games, err := repo.ByPlayer(ctx, "akagi", 10, 0)
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, "g-new", games[0].GameID)
	assert.Equal(t, "g-old", games[1].GameID)

	games, err = repo.ByPlayer(ctx, "nobody", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, games)
}
