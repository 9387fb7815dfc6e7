package game

import (
	"context"
	cryptorand "crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/janryu/janryu/common/auth"
	"github.com/janryu/janryu/common/config"
	"github.com/janryu/janryu/common/log"
	"github.com/janryu/janryu/core/entity"
	"github.com/janryu/janryu/core/repository"
	"github.com/janryu/janryu/dto"
	"github.com/janryu/janryu/framework/conn"
	"github.com/janryu/janryu/game/engines/riichi"
	"github.com/janryu/janryu/march"
	"github.com/janryu/janryu/relay"
	"github.com/janryu/janryu/replay"
)

const (
	// TicketTTL bounds how long a minted admission ticket stays usable.
	// It covers the wait in the room plus the websocket dial.
	TicketTTL = 10 * time.Minute

	persistTimeout = 5 * time.Second
)

var (
	errGameOver = errors.New("game already over")

	// ErrRoomNotFound lets the lobby layer answer 404 instead of 500.
	ErrRoomNotFound = errors.New("room not found")
)

// Controller owns the tables: rooms filling up, games running, and the
// path between them. It is the connection manager's Gateway and the match
// pool's GameStarter, so lobby joins and quick matches funnel into the
// same start path.
type Controller struct {
	profile TimerProfile
	rules   riichi.Rules
	grace   time.Duration
	secret  []byte

	store   *conn.SessionStore
	rooms   *RoomManager
	engine  *riichi.Engine
	decider riichi.Decider
	sink    *replay.Sink
	relay   *relay.Relay
	repo    repository.PlayedGameRepository

	// persist serializes record writes so a slow store never runs on a
	// game executor.
	persist *Executor

	mu    sync.RWMutex
	games map[string]*Runtime
}

func NewController(conf *config.Configuration, store *conn.SessionStore, sink *replay.Sink, rel *relay.Relay, repo repository.PlayedGameRepository) *Controller {
	engine := riichi.NewEngine()
	c := &Controller{
		profile: ProfileFromConf(conf.Timers),
		rules:   rulesFromConf(conf.Rules),
		grace:   time.Duration(conf.Ws.GraceSeconds) * time.Second,
		secret:  []byte(conf.Auth.TicketSecret),
		store:   store,
		rooms:   NewRoomManager(),
		engine:  engine,
		decider: riichi.NewTsumogiri(engine),
		sink:    sink,
		relay:   rel,
		repo:    repo,
		persist: NewExecutor(64),
		games:   make(map[string]*Runtime),
	}
	if c.grace <= 0 {
		c.grace = 30 * time.Second
	}
	return c
}

func rulesFromConf(rc config.RulesConf) riichi.Rules {
	r := riichi.DefaultRules()
	if rc.InitialScore > 0 {
		r.InitialScore = rc.InitialScore
	}
	if rc.TargetScore > 0 {
		r.TargetScore = rc.TargetScore
	}
	if rc.GameLength == "east" {
		r.Length = riichi.LengthEast
	}
	r.Enchousen = rc.Enchousen
	if rc.MaxRonWinners > 0 {
		r.MaxRonWinners = rc.MaxRonWinners
	}
	r.KanDoraImmediately = rc.KanDoraImmediately
	return r
}

func (c *Controller) game(id string) *Runtime {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.games[id]
}

func (c *Controller) retireGame(id string) {
	c.mu.Lock()
	delete(c.games, id)
	c.mu.Unlock()
	if room, ok := c.rooms.GetRoom(id); ok {
		room.SetFinished()
		c.rooms.DeleteRoom(id)
	}
}

// CreateRoom opens a table waiting for MaxPlayers-numAI humans.
func (c *Controller) CreateRoom(numAI int) (*Room, error) {
	return c.rooms.CreateRoom(numAI)
}

// Room looks a room up for the lobby endpoints.
func (c *Controller) Room(roomID string) (*Room, bool) {
	return c.rooms.GetRoom(roomID)
}

// RoomStats counts waiting rooms and the users routed into them.
func (c *Controller) RoomStats() (rooms, users int) {
	return c.rooms.Stats()
}

// JoinRoom seats user in a waiting room, opens their session, and mints
// the websocket admission ticket for the future game.
func (c *Controller) JoinRoom(roomID, user, name string) (string, error) {
	if _, err := c.rooms.JoinRoom(roomID, user, name); err != nil {
		return "", err
	}
	s, err := c.store.Create(user, name)
	if err != nil {
		c.rooms.LeaveRoom(user)
		return "", err
	}
	// The room ID is the game ID, so the session and the ticket both
	// point at the table before it exists.
	s.SetGameID(roomID)
	return auth.Mint(user, roomID, TicketTTL, c.secret), nil
}

// LeaveRoom backs user out of a waiting room and retires their session.
func (c *Controller) LeaveRoom(user string) error {
	if err := c.rooms.LeaveRoom(user); err != nil {
		return err
	}
	if s, ok := c.store.ByUser(user); ok {
		c.store.Remove(s)
		s.Kick(conn.CloseNormal, "left room")
	}
	return nil
}

// SetReady flips user's ready flag; the last ready-up starts the game.
func (c *Controller) SetReady(roomID, user string, ready bool) error {
	room, ok := c.rooms.GetRoom(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	if err := room.SetReady(user, ready); err != nil {
		return err
	}
	if !ready || !room.ReadyToStart() || !room.BeginTransition() {
		return nil
	}
	err := c.startRoom(room)
	room.FinishTransition(err == nil)
	return err
}

// QuickMatch starts a table for a pool batch: a fresh all-human room,
// every player joined and readied in one sweep. Implements the match
// pool's starter seam.
func (c *Controller) QuickMatch(players []march.QueuedPlayer) (string, map[string]string, error) {
	if len(players) != MaxPlayers {
		return "", nil, errors.New("quick match needs a full table")
	}
	room, err := c.rooms.CreateRoom(0)
	if err != nil {
		return "", nil, err
	}
	tickets := make(map[string]string, len(players))
	for _, p := range players {
		t, err := c.JoinRoom(room.ID, p.User, p.Name)
		if err != nil {
			c.dissolveRoom(room)
			return "", nil, err
		}
		tickets[p.User] = t
	}
	for _, p := range players {
		if err := c.SetReady(room.ID, p.User, true); err != nil {
			c.dissolveRoom(room)
			return "", nil, err
		}
	}
	return room.ID, tickets, nil
}

// dissolveRoom unwinds a partially assembled quick-match room.
func (c *Controller) dissolveRoom(room *Room) {
	if c.game(room.ID) != nil {
		return
	}
	for _, m := range room.Members() {
		if s, ok := c.store.ByUser(m.User); ok {
			c.store.Remove(s)
			s.Kick(conn.CloseNormal, "match failed")
		}
	}
	c.rooms.DeleteRoom(room.ID)
}

// startRoom deals the game for a full room: random seats, fresh wall
// seed, seat-to-session binding, and the opening fan-out. The caller
// holds the room's transition guard.
func (c *Controller) startRoom(room *Room) error {
	humans := room.HumanNames()
	seed := make([]byte, 32)
	if _, err := cryptorand.Read(seed); err != nil {
		return err
	}
	cfgs, err := march.AssignSeats(humans, seed)
	if err != nil {
		return err
	}

	var seats [4]riichi.SeatInfo
	for i, cfg := range cfgs {
		seats[i] = riichi.SeatInfo{Seat: i, Name: cfg.Name, IsAI: cfg.IsAI}
	}
	state, events, err := c.engine.NewGame(room.ID, seed, seats, c.rules)
	if err != nil {
		return err
	}

	r := newRuntime(c, room.ID, state)
	nameToUser := make(map[string]string, MaxPlayers)
	for _, m := range room.Members() {
		nameToUser[m.Name] = m.User
	}
	for i, cfg := range cfgs {
		if cfg.IsAI {
			r.ai[i] = true
			continue
		}
		s, ok := c.store.ByUser(nameToUser[cfg.Name])
		if !ok {
			// Session vanished between join and start; the stand-in
			// plays the seat from the first tile.
			log.Warn("game %s seat %d: no session for %s, seating stand-in", room.ID, i, cfg.Name)
			r.ai[i] = true
			continue
		}
		s.SetSeat(i)
		// Seed the preserved bank so a later attach restores the full
		// reserve rather than a zero from the empty session.
		s.SetBank(c.profile.Bank)
		r.sessions[i] = s
	}

	c.mu.Lock()
	c.games[room.ID] = r
	c.mu.Unlock()

	recs := make([]entity.SeatRecord, len(cfgs))
	for i, cfg := range cfgs {
		recs[i] = entity.SeatRecord{Seat: i, Name: cfg.Name, IsAI: cfg.IsAI}
	}
	c.persistCreate(room.ID, recs)

	r.exec.Post(func() {
		r.fanOut(events)
		for seat, s := range r.sessions {
			if s != nil && !s.Connected() {
				// Ticket holders who have not dialed in yet get the
				// same grace as a mid-game drop.
				r.beginGrace(seat)
			}
		}
		r.armPhase()
		r.drive()
	})
	log.Info("game %s started, humans %v", room.ID, humans)
	return nil
}

// Join admits a ticket-verified connection. Before the game starts it
// just binds the socket; once the game runs it replays the current state
// like a resume, but under the standing token.
func (c *Controller) Join(gameID, user string, cc conn.Connection) (*conn.Session, error) {
	s, ok := c.store.ByUser(user)
	if !ok {
		return nil, dto.ErrSessionNotFound
	}
	if s.GameID() != gameID {
		return nil, dto.ErrWrongGame
	}
	r := c.game(gameID)
	if r == nil {
		if replaced := s.Attach(cc); replaced != nil {
			replaced.CloseWithCode(conn.CloseNormal, "replaced by new connection")
		}
		if err := s.Send(dto.EncodeSessionAck(s.Token(), gameID, s.Seat())); err != nil {
			s.Detach(cc.ID())
			return nil, err
		}
		return s, nil
	}
	return c.syncOnExecutor(r, s, cc, false)
}

// Resume re-admits a dropped client by session token and rotates the
// token. The old token keeps working until the rotated one has provably
// reached the client.
func (c *Controller) Resume(gameID, token string, cc conn.Connection) (*conn.Session, error) {
	s, err := c.store.ByToken(token)
	if err != nil {
		return nil, err
	}
	if s.GameID() != gameID {
		return nil, dto.ErrWrongGame
	}
	r := c.game(gameID)
	if r == nil {
		candidate := c.store.BeginRotation(s)
		if replaced := s.Attach(cc); replaced != nil {
			replaced.CloseWithCode(conn.CloseNormal, "replaced by new connection")
		}
		done, err := s.SendTracked(dto.EncodeSessionAck(candidate, gameID, s.Seat()))
		if err == nil {
			err = <-done
		}
		if err != nil {
			c.store.AbortRotation(s)
			s.Detach(cc.ID())
			return nil, err
		}
		c.store.CommitRotation(s)
		return s, nil
	}
	return c.syncOnExecutor(r, s, cc, true)
}

// syncOnExecutor runs the attach on the game's executor so the ack and
// snapshot are queued atomically with respect to the event stream, then
// waits here, off the executor, for the write pump to deliver both.
func (c *Controller) syncOnExecutor(r *Runtime, s *conn.Session, cc conn.Connection, rotate bool) (*conn.Session, error) {
	res := make(chan attachDelivery, 1)
	if !r.exec.Post(func() { res <- r.attachAndSync(s, cc, rotate) }) {
		return nil, errGameOver
	}
	d := <-res
	err := d.err
	if err == nil {
		err = <-d.ack
	}
	if err == nil {
		err = <-d.snap
	}
	if err != nil {
		if rotate {
			c.store.AbortRotation(s)
		}
		s.Detach(cc.ID())
		return nil, err
	}
	if rotate {
		c.store.CommitRotation(s)
	}
	return s, nil
}

// Handle dispatches one decoded in-game frame.
func (c *Controller) Handle(s *conn.Session, msg dto.ClientMessage) {
	switch msg.T {
	case dto.KindAction:
		r := c.game(s.GameID())
		if r == nil {
			s.Send(dto.EncodeError(dto.CodeNotInGame, "game has not started"))
			return
		}
		act := msg.Action.Action(s.Seat())
		if !r.exec.Post(func() { r.handleAction(s, act) }) {
			s.Send(dto.EncodeError(dto.CodeNotInGame, errGameOver.Error()))
		}
	case dto.KindChat:
		c.handleChat(s, msg.Text)
	}
}

func (c *Controller) handleChat(s *conn.Session, text string) {
	frame := dto.EncodeChat(s.Seat(), s.Name(), text)
	if r := c.game(s.GameID()); r != nil {
		r.exec.Post(func() { r.sendChat(frame) })
		return
	}
	room, ok := c.rooms.GetRoom(s.GameID())
	if !ok {
		s.Send(dto.EncodeError(dto.CodeNotInGame, "no table for chat"))
		return
	}
	for _, m := range room.Members() {
		if ms, ok := c.store.ByUser(m.User); ok {
			ms.Send(frame)
		}
	}
}

// Drop records a socket loss. The session itself survives for the grace
// window; only the runtime decides when the seat changes hands.
func (c *Controller) Drop(s *conn.Session, connID string) {
	if s == nil {
		return
	}
	if !s.Detach(connID) {
		// A newer socket already replaced this one.
		return
	}
	if r := c.game(s.GameID()); r != nil {
		r.exec.Post(func() { r.handleDisconnect(s) })
	}
}

// onTimerFired hops from the timer goroutine onto the game's executor.
func (c *Controller) onTimerFired(gameID string, seat int, kind TimerKind) {
	if r := c.game(gameID); r != nil {
		r.exec.Post(func() { r.handleTimeout(seat, kind) })
	}
}

func (c *Controller) persistCreate(gameID string, seats []entity.SeatRecord) {
	if c.repo == nil {
		return
	}
	pg := entity.NewPlayedGame(gameID, seats)
	c.persist.Post(func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := c.repo.Create(ctx, pg); err != nil {
			log.Error("game %s: open record: %v", gameID, err)
		}
	})
}

func (c *Controller) persistFinish(gameID, reason string, standings []entity.StandingRecord) {
	if c.repo == nil {
		return
	}
	endedAt := time.Now()
	c.persist.Post(func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := c.repo.Finish(ctx, gameID, endedAt, reason, standings); err != nil {
			log.Error("game %s: close record: %v", gameID, err)
		}
	})
}

// Stats reports active games and live sessions, for the load monitor.
func (c *Controller) Stats() (games, players int) {
	c.mu.RLock()
	games = len(c.games)
	c.mu.RUnlock()
	return games, c.store.Len()
}

// Close shuts every live game down and drains the record writer.
func (c *Controller) Close() {
	c.mu.RLock()
	rts := make([]*Runtime, 0, len(c.games))
	for _, r := range c.games {
		rts = append(rts, r)
	}
	c.mu.RUnlock()
	for _, r := range rts {
		r := r
		r.exec.Post(func() { r.shutdown() })
	}
	for _, r := range rts {
		r.exec.Flush()
	}
	c.persist.Flush()
	c.persist.Stop()
}
