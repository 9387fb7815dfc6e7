package api

import (
	"time"

	"github.com/janryu/janryu/common/http"
)

// PingHandler answers liveness probes.
func (a *API) PingHandler(c *http.Context) error {
	c.Success(map[string]interface{}{
		"message":   "pong",
		"timestamp": time.Now().Unix(),
		"service":   a.conf.AppName,
	})
	return nil
}

// HealthHandler reports the node's occupancy for balancers and dashboards.
func (a *API) HealthHandler(c *http.Context) error {
	games, players := a.ctrl.Stats()
	rooms, waiting := a.ctrl.RoomStats()

	c.Success(map[string]interface{}{
		"healthy":   true,
		"games":     games,
		"players":   players,
		"rooms":     rooms,
		"waiting":   waiting,
		"timestamp": time.Now().Unix(),
	})
	return nil
}
