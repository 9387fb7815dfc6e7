package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/janryu/janryu/common/http"
	"github.com/janryu/janryu/core/entity"
	"github.com/janryu/janryu/core/repository"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

type seatInfo struct {
	Seat int    `json:"seat"`
	Name string `json:"name"`
	IsAI bool   `json:"is_ai"`
}

type standingInfo struct {
	Rank  int    `json:"rank"`
	Seat  int    `json:"seat"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type gameSummary struct {
	GameID    string         `json:"game_id"`
	Status    string         `json:"status"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   *time.Time     `json:"ended_at,omitempty"`
	Duration  int            `json:"duration"`
	EndReason string         `json:"end_reason,omitempty"`
	Seats     []seatInfo     `json:"seats"`
	Standings []standingInfo `json:"standings,omitempty"`
}

func summarize(pg *entity.PlayedGame) gameSummary {
	s := gameSummary{
		GameID:    pg.GameID,
		Status:    pg.Status,
		StartedAt: pg.StartedAt,
		Duration:  pg.Duration,
		EndReason: pg.EndReason,
	}
	if !pg.EndedAt.IsZero() {
		endedAt := pg.EndedAt
		s.EndedAt = &endedAt
	}
	for _, seat := range pg.Seats {
		s.Seats = append(s.Seats, seatInfo{Seat: seat.Seat, Name: seat.Name, IsAI: seat.IsAI})
	}
	for _, st := range pg.Standings {
		s.Standings = append(s.Standings, standingInfo{Rank: st.Rank, Seat: st.Seat, Name: st.Name, Score: st.Score})
	}
	return s
}

// GamesHandler lists the caller's match history, newest first. Records key
// participants by display name, so the page covers every game that name
// sat in.
func (a *API) GamesHandler(c *http.Context) error {
	if a.repo == nil {
		c.Error("history is not available")
		return nil
	}

	page, _ := strconv.Atoi(c.GetQueryWithDefault("page", "1"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.GetQueryWithDefault("size", strconv.Itoa(defaultPageSize)))
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	// Fetch one extra row to learn whether another page exists without a
	// count query.
	name := c.GetString(ctxUserName)
	games, err := a.repo.ByPlayer(c.Request().Context(), name, size+1, (page-1)*size)
	if err != nil {
		return err
	}
	hasMore := len(games) > size
	if hasMore {
		games = games[:size]
	}

	list := make([]gameSummary, 0, len(games))
	for _, pg := range games {
		list = append(list, summarize(pg))
	}

	c.Success(map[string]any{
		"games":    list,
		"page":     page,
		"size":     size,
		"has_more": hasMore,
	})
	return nil
}

func (a *API) GameHandler(c *http.Context) error {
	if a.repo == nil {
		c.Error("history is not available")
		return nil
	}

	pg, err := a.repo.ByGameID(c.Request().Context(), c.GetParam("id"))
	if errors.Is(err, repository.ErrGameNotFound) {
		c.NotFound("game not found")
		return nil
	}
	if err != nil {
		return err
	}

	c.Success(summarize(pg))
	return nil
}
