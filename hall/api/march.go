package api

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/janryu/janryu/common/http"
	"github.com/janryu/janryu/common/log"
	"github.com/janryu/janryu/game"
	"github.com/janryu/janryu/march"
	"github.com/janryu/janryu/relay"
)

// matchResults tails the pool's announcements so queued players can pick
// their ticket up with a plain poll. Entries expire with the admission
// ticket itself.
type matchResults struct {
	mu     sync.Mutex
	byUser map[string]pendingMatch
}

type pendingMatch struct {
	gameID string
	ticket string
	at     time.Time
}

func watchMatchResults(rel *relay.Relay) *matchResults {
	w := &matchResults{byUser: make(map[string]pendingMatch)}
	if err := rel.Subscribe(march.ResultSubject, w.ingest); err != nil {
		log.Warn("match result feed unavailable: %v", err)
	}
	return w
}

func (w *matchResults) ingest(data []byte) {
	var res march.MatchResult
	if err := json.Unmarshal(data, &res); err != nil {
		log.Warn("bad match result payload: %v", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune()
	for user, ticket := range res.Tickets {
		w.byUser[user] = pendingMatch{gameID: res.GameID, ticket: ticket, at: time.Now()}
	}
}

// take hands a pending ticket out exactly once.
func (w *matchResults) take(user string) (pendingMatch, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune()
	m, ok := w.byUser[user]
	if ok {
		delete(w.byUser, user)
	}
	return m, ok
}

func (w *matchResults) prune() {
	cutoff := time.Now().Add(-game.TicketTTL)
	for user, m := range w.byUser {
		if m.at.Before(cutoff) {
			delete(w.byUser, user)
		}
	}
}

// QueueJoinHandler enqueues the caller for quick match.
func (a *API) QueueJoinHandler(c *http.Context) error {
	if a.queue == nil {
		c.Error("quick match is not enabled")
		return nil
	}

	user := c.GetString(ctxUserID)
	name := c.GetString(ctxUserName)
	err := a.queue.Join(c.Request().Context(), user, name)
	if errors.Is(err, march.ErrAlreadyQueued) {
		c.Error("already queued")
		return nil
	}
	if err != nil {
		return err
	}

	c.Success(nil)
	return nil
}

func (a *API) QueueLeaveHandler(c *http.Context) error {
	if a.queue == nil {
		c.Error("quick match is not enabled")
		return nil
	}

	err := a.queue.Leave(c.Request().Context(), c.GetString(ctxUserID))
	if errors.Is(err, march.ErrNotQueued) {
		c.Error("not queued")
		return nil
	}
	if err != nil {
		return err
	}

	c.Success(nil)
	return nil
}

func (a *API) QueueSizeHandler(c *http.Context) error {
	if a.queue == nil {
		c.Error("quick match is not enabled")
		return nil
	}

	size, err := a.queue.Size(c.Request().Context())
	if err != nil {
		return err
	}

	c.Success(map[string]any{"waiting": size})
	return nil
}

// MatchResultHandler is the pickup poll: once a batch including the caller
// starts, it answers the game ID and admission ticket, one time only.
func (a *API) MatchResultHandler(c *http.Context) error {
	if a.results == nil {
		c.Error("quick match is not enabled")
		return nil
	}

	m, ok := a.results.take(c.GetString(ctxUserID))
	if !ok {
		c.Success(map[string]any{"matched": false})
		return nil
	}

	c.Success(map[string]any{
		"matched": true,
		"game_id": m.gameID,
		"ticket":  m.ticket,
		"ws_path": "/ws/" + m.gameID,
	})
	return nil
}
