package api

import (
	"errors"

	"github.com/janryu/janryu/common/http"
	"github.com/janryu/janryu/game"
)

type roomMember struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
}

type roomInfo struct {
	RoomID        string       `json:"room_id"`
	Status        string       `json:"status"`
	NumAI         int          `json:"num_ai"`
	PlayersNeeded int          `json:"players_needed"`
	Host          string       `json:"host"`
	Members       []roomMember `json:"members"`
}

// buildRoomInfo exposes display names only; user IDs stay server-side.
func buildRoomInfo(room *game.Room) roomInfo {
	host := room.Host()
	info := roomInfo{
		RoomID:        room.ID,
		Status:        room.Status().String(),
		NumAI:         room.NumAI,
		PlayersNeeded: room.PlayersNeeded(),
	}
	for _, m := range room.Members() {
		info.Members = append(info.Members, roomMember{Name: m.Name, Ready: m.Ready})
		if m.User == host {
			info.Host = m.Name
		}
	}
	return info
}

// CreateRoomHandler opens a table. num_ai is optional and defaults from
// configuration; the creator still has to join like everyone else.
func (a *API) CreateRoomHandler(c *http.Context) error {
	var req struct {
		NumAI *int `json:"num_ai"`
	}
	numAI := a.conf.Rules.NumAIPlayers
	if err := c.BindJSON(&req); err == nil && req.NumAI != nil {
		numAI = *req.NumAI
	}

	room, err := a.ctrl.CreateRoom(numAI)
	if err != nil {
		c.BadRequest(err.Error())
		return nil
	}

	c.Success(buildRoomInfo(room))
	return nil
}

func (a *API) RoomInfoHandler(c *http.Context) error {
	room, ok := a.ctrl.Room(c.GetParam("id"))
	if !ok {
		c.NotFound("room not found")
		return nil
	}
	c.Success(buildRoomInfo(room))
	return nil
}

// JoinRoomHandler seats the caller and answers with the websocket
// admission ticket for the table.
func (a *API) JoinRoomHandler(c *http.Context) error {
	roomID := c.GetParam("id")
	user := c.GetString(ctxUserID)
	name := c.GetString(ctxUserName)

	ticket, err := a.ctrl.JoinRoom(roomID, user, name)
	if errors.Is(err, game.ErrRoomNotFound) {
		c.NotFound("room not found")
		return nil
	}
	if err != nil {
		c.Error(err.Error())
		return nil
	}

	c.Success(map[string]any{
		"ticket":  ticket,
		"game_id": roomID,
		"ws_path": "/ws/" + roomID,
	})
	return nil
}

// ReadyHandler flips the caller's ready flag. The last ready-up starts the
// game, so the answered status may already read "playing".
func (a *API) ReadyHandler(c *http.Context) error {
	roomID := c.GetParam("id")
	user := c.GetString(ctxUserID)

	var req struct {
		Ready *bool `json:"ready"`
	}
	ready := true
	if err := c.BindJSON(&req); err == nil && req.Ready != nil {
		ready = *req.Ready
	}

	err := a.ctrl.SetReady(roomID, user, ready)
	if errors.Is(err, game.ErrRoomNotFound) {
		c.NotFound("room not found")
		return nil
	}
	if err != nil {
		c.Error(err.Error())
		return nil
	}

	status := game.RoomFinished.String()
	if room, ok := a.ctrl.Room(roomID); ok {
		status = room.Status().String()
	}
	c.Success(map[string]any{
		"ready":  ready,
		"status": status,
	})
	return nil
}

func (a *API) LeaveRoomHandler(c *http.Context) error {
	if err := a.ctrl.LeaveRoom(c.GetString(ctxUserID)); err != nil {
		c.Error(err.Error())
		return nil
	}
	c.Success(nil)
	return nil
}
