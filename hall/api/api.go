// Package api is the lobby: login, rooms, quick match, and match history.
// Game traffic itself rides the websocket in framework/conn; everything
// here happens before a client dials in.
package api

import (
	"github.com/janryu/janryu/common/config"
	"github.com/janryu/janryu/common/http"
	"github.com/janryu/janryu/core/repository"
	"github.com/janryu/janryu/game"
	"github.com/janryu/janryu/march"
	"github.com/janryu/janryu/relay"
)

type API struct {
	conf    *config.Configuration
	ctrl    *game.Controller
	queue   *march.Queue
	repo    repository.PlayedGameRepository
	results *matchResults
}

// NewAPI wires the lobby against the controller. queue may be nil when
// redis is not configured, which disables the quick-match endpoints.
func NewAPI(conf *config.Configuration, ctrl *game.Controller, queue *march.Queue, repo repository.PlayedGameRepository, rel *relay.Relay) *API {
	a := &API{
		conf:  conf,
		ctrl:  ctrl,
		queue: queue,
		repo:  repo,
	}
	if queue != nil {
		a.results = watchMatchResults(rel)
	}
	return a
}

// RegisterRoutes mounts every lobby endpoint.
func (a *API) RegisterRoutes(server *http.HttpServer) {
	server.GET("/ping", a.PingHandler)
	server.GET("/health", a.HealthHandler)

	v1 := server.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", a.LoginHandler)
			auth.POST("/refresh", a.RefreshHandler)
		}

		authed := v1.Group("", a.AuthMiddleware())
		{
			rooms := authed.Group("/rooms")
			{
				rooms.POST("", a.CreateRoomHandler)
				rooms.GET("/:id", a.RoomInfoHandler)
				rooms.POST("/:id/join", a.JoinRoomHandler)
				rooms.POST("/:id/ready", a.ReadyHandler)
				rooms.POST("/:id/leave", a.LeaveRoomHandler)
			}

			queue := authed.Group("/march")
			{
				queue.POST("/queue", a.QueueJoinHandler)
				queue.DELETE("/queue", a.QueueLeaveHandler)
				queue.GET("/queue", a.QueueSizeHandler)
				queue.GET("/result", a.MatchResultHandler)
			}

			games := authed.Group("/games")
			{
				games.GET("", a.GamesHandler)
				games.GET("/:id", a.GameHandler)
			}
		}
	}
}
