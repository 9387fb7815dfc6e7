package game

import (
	"errors"
	"time"

	"github.com/janryu/janryu/common/log"
	"github.com/janryu/janryu/core/entity"
	"github.com/janryu/janryu/dto"
	"github.com/janryu/janryu/framework/conn"
	"github.com/janryu/janryu/game/engines/riichi"
)

// maxChain bounds one burst of server-made moves (stand-ins and timed-out
// seats). A full game is a few thousand actions, so hitting the bound
// means the engine stopped making progress.
const maxChain = 50000

// closeLinger is how long finished games keep their sockets open so the
// queued game_end frame flushes before the close frame, which bypasses
// the send queue.
const closeLinger = 2 * time.Second

// waitKind is what a seat currently owes the game, derived from engine
// state alone so it can be recomputed after every action.
type waitKind int

const (
	waitNone waitKind = iota
	waitTurn
	waitMeld
	waitAdvance
)

func waitForTimer(kind TimerKind) waitKind {
	switch kind {
	case TimerTurn:
		return waitTurn
	case TimerMeld:
		return waitMeld
	default:
		return waitAdvance
	}
}

// Runtime is one live game. Everything below the ctrl pointer is owned by
// exec: only jobs running on it may touch state, sessions, ai, grace or
// finished. Timer and socket goroutines get in by posting jobs.
type Runtime struct {
	id     string
	ctrl   *Controller
	exec   *Executor
	timers *TimerBank

	state    riichi.GameState
	sessions [4]*conn.Session
	ai       [4]bool
	grace    [4]*time.Timer
	finished bool
}

func newRuntime(ctrl *Controller, id string, state riichi.GameState) *Runtime {
	r := &Runtime{
		id:    id,
		ctrl:  ctrl,
		exec:  NewExecutor(256),
		state: state,
	}
	r.timers = NewTimerBank(id, ctrl.profile, ctrl.onTimerFired)
	return r
}

// seatWait reads what the engine is waiting on from seat. It mirrors the
// branch structure of the engine's default-action pick so the two can
// never disagree about whether a seat owes a move.
func (r *Runtime) seatWait(seat int) waitKind {
	switch r.state.Phase {
	case riichi.GameRoundOver:
		if !r.state.Confirmed[seat] {
			return waitAdvance
		}
		return waitNone
	case riichi.GamePlaying:
	default:
		return waitNone
	}
	rs := &r.state.Round
	if rs.Prompt != nil {
		if rs.Prompt.Pending[seat] {
			return waitMeld
		}
		return waitNone
	}
	if rs.Current == seat && rs.Phase == riichi.RoundPlaying {
		return waitTurn
	}
	return waitNone
}

// armPhase reconciles every seat's timer with what the engine now waits
// on. A running timer of the same kind is left alone, so a call window
// survives other claimants passing; anything else is torn down and armed
// fresh. Absent seats get no timer, their grace timer or stand-in covers
// them.
func (r *Runtime) armPhase() {
	if r.finished {
		return
	}
	for seat := 0; seat < 4; seat++ {
		s := r.sessions[seat]
		human := !r.ai[seat] && s != nil && s.Connected()
		wait := r.seatWait(seat)
		if !human || wait == waitNone {
			r.timers.Cancel(seat)
			continue
		}
		if armed, ok := r.timers.Armed(seat); ok && waitForTimer(armed) == wait {
			continue
		}
		r.armFor(seat, wait)
	}
}

func (r *Runtime) armFor(seat int, wait waitKind) {
	switch wait {
	case waitTurn:
		r.timers.ArmTurn(seat)
	case waitMeld:
		r.timers.ArmMeld(seat)
	case waitAdvance:
		r.timers.ArmAdvance(seat)
	}
}

// applyFrom pushes one action through the engine and handles the three
// failure tiers: fabricated input costs the seat its session, a plain
// rule error is reported back to the sender only, anything else is an
// engine invariant failure and aborts the game.
func (r *Runtime) applyFrom(seat int, act riichi.Action, replyTo *conn.Session) {
	next, events, err := r.ctrl.engine.Apply(r.state, act)
	if err != nil {
		var rerr *riichi.RuleError
		if errors.As(err, &rerr) {
			if rerr.Fabricated {
				log.Warn("game %s seat %d fabricated %s: %s", r.id, seat, rerr.Action, rerr.Reason)
				r.replaceWithAI(seat, conn.CloseStrikes, "fabricated action")
				return
			}
			if replyTo == nil {
				// A server-made move can never break a rule; the
				// pick and the engine went out of sync.
				r.abortGame(err)
				return
			}
			replyTo.Send(dto.EncodeError(dto.CodeActionFailed, rerr.Reason))
			return
		}
		r.abortGame(err)
		return
	}

	// The move landed, so the seat's clock stops and pays for overrun.
	r.timers.Stop(seat)
	prevSeq := r.state.RoundSeq
	r.state = next
	end := r.fanOut(events)
	if end != nil {
		r.finishGame(end)
		return
	}
	if r.state.RoundSeq != prevSeq {
		r.timers.GrantRoundBonus()
	}
	r.armPhase()
}

// drive lets the server act for every seat it currently controls,
// repeating until no stand-in owes a move. Run after anything that may
// have handed the turn to an absent seat.
func (r *Runtime) drive() {
	for steps := 0; steps < maxChain; steps++ {
		if r.finished {
			return
		}
		acted := false
		for seat := 0; seat < 4; seat++ {
			if !r.ai[seat] {
				continue
			}
			act, ok := r.ctrl.decider.Decide(r.state, seat)
			if !ok {
				continue
			}
			r.applyFrom(seat, act, nil)
			acted = true
			break
		}
		if !acted {
			return
		}
	}
	r.abortGame(errors.New("stand-in chain exceeded bound"))
}

// handleAction is the entry for a human move, posted by the socket
// worker.
func (r *Runtime) handleAction(s *conn.Session, act riichi.Action) {
	if r.finished {
		return
	}
	seat := s.Seat()
	if seat < 0 || r.sessions[seat] != s {
		s.Send(dto.EncodeError(dto.CodeNotInGame, "no seat in this game"))
		return
	}
	if r.ai[seat] {
		s.Send(dto.EncodeError(dto.CodeActionFailed, "seat is run by the stand-in"))
		return
	}
	r.applyFrom(seat, act, s)
	r.drive()
}

// handleTimeout runs when a seat's deadline passed. The expiry already
// zeroed the bank where that applies; here the default move is injected,
// unless an action raced the timer and settled the wait first.
func (r *Runtime) handleTimeout(seat int, kind TimerKind) {
	if r.finished {
		return
	}
	if r.seatWait(seat) != waitForTimer(kind) {
		return
	}
	act, ok := r.ctrl.engine.DefaultAction(r.state, seat)
	if !ok {
		return
	}
	log.Info("game %s seat %d %s timer expired, injecting %s", r.id, seat, kind, act.Type)
	r.applyFrom(seat, act, nil)
	r.drive()
}

// handleDisconnect captures the seat's remaining bank, parks its timers
// and starts the grace countdown. The game waits for this seat until the
// grace runs out or the player comes back.
func (r *Runtime) handleDisconnect(s *conn.Session) {
	if r.finished {
		return
	}
	seat := s.Seat()
	if seat < 0 || r.sessions[seat] != s {
		return
	}
	if s.Connected() {
		// A new socket already took over.
		return
	}
	s.SetBank(r.timers.Bank(seat))
	r.timers.Cancel(seat)
	if r.beginGrace(seat) {
		log.Info("game %s seat %d disconnected, holding for %v", r.id, seat, r.ctrl.grace)
	}
}

// beginGrace starts the countdown after which the stand-in takes over
// seat. Reports whether a fresh countdown was started.
func (r *Runtime) beginGrace(seat int) bool {
	if r.ai[seat] || r.grace[seat] != nil {
		return false
	}
	r.grace[seat] = time.AfterFunc(r.ctrl.grace, func() {
		r.exec.Post(func() { r.handleGraceExpired(seat) })
	})
	return true
}

func (r *Runtime) handleGraceExpired(seat int) {
	if r.finished {
		return
	}
	r.grace[seat] = nil
	if s := r.sessions[seat]; s != nil && s.Connected() {
		return
	}
	if r.ai[seat] {
		return
	}
	r.ai[seat] = true
	log.Warn("game %s seat %d grace expired, stand-in takes the seat", r.id, seat)
	r.drive()
}

// attachDelivery reports how far a resume got. Both channels resolve once
// the write pump either flushed the frame or lost the socket.
type attachDelivery struct {
	ack  <-chan error
	snap <-chan error
	err  error
}

// attachAndSync binds a new socket to s and queues the session ack and
// the state snapshot back-to-back, before any later game event can be
// routed to the seat. With rotate set the ack carries a candidate token;
// the caller commits the rotation only after both sends land.
func (r *Runtime) attachAndSync(s *conn.Session, c conn.Connection, rotate bool) attachDelivery {
	if r.finished {
		return attachDelivery{err: errGameOver}
	}
	seat := s.Seat()
	if seat < 0 {
		return attachDelivery{err: dto.ErrWrongGame}
	}
	token := s.Token()
	if rotate {
		token = r.ctrl.store.BeginRotation(s)
	}
	if replaced := s.Attach(c); replaced != nil {
		replaced.CloseWithCode(conn.CloseNormal, "replaced by new connection")
	}
	if t := r.grace[seat]; t != nil {
		t.Stop()
		r.grace[seat] = nil
	}
	if !r.ai[seat] {
		// The rebuilt clock starts from the bank preserved at
		// disconnect, not a fresh one.
		r.timers.SetBank(seat, s.Bank())
		if wait := r.seatWait(seat); wait != waitNone {
			r.armFor(seat, wait)
		}
	}

	var d attachDelivery
	d.ack, d.err = s.SendTracked(dto.EncodeSessionAck(token, r.id, seat))
	if d.err != nil {
		return d
	}
	snap, err := dto.EncodeEvent(r.ctrl.engine.BuildSnapshot(r.state, seat))
	if err != nil {
		d.err = err
		return d
	}
	d.snap, d.err = s.SendTracked(snap)
	return d
}

// fanOut encodes and routes one batch of engine events. Every frame goes
// to the replay log first, including frames for seats nobody is sitting
// at, so the log stays the full record. Returns the game_end event if the
// batch carried one.
func (r *Runtime) fanOut(events []riichi.Routed) *riichi.GameEndEvent {
	var end *riichi.GameEndEvent
	for _, rt := range events {
		frame, err := dto.EncodeEvent(rt.Event)
		if err != nil {
			log.Error("game %s: encode %s: %v", r.id, rt.Event.EventType(), err)
			continue
		}
		if err := r.ctrl.sink.Append(r.id, rt.Target, frame); err != nil {
			log.Error("game %s: replay append: %v", r.id, err)
		}
		if rt.Target == riichi.Broadcast {
			r.ctrl.relay.PublishEvent(r.id, frame)
			for seat := range r.sessions {
				r.send(seat, frame)
			}
		} else {
			r.send(rt.Target, frame)
		}
		if ge, ok := rt.Event.(riichi.GameEndEvent); ok {
			end = &ge
		}
	}
	return end
}

// send queues frame for seat's socket. Stand-in seats and disconnected
// seats drop the frame, the replay log already has it. A full send queue
// means the client stopped reading a while ago; it gets cut instead of
// stalling the table.
func (r *Runtime) send(seat int, frame []byte) {
	s := r.sessions[seat]
	if s == nil || !s.Connected() {
		return
	}
	if err := s.Send(frame); err != nil {
		if errors.Is(err, dto.ErrSendChanFull) {
			log.Warn("game %s seat %d send queue overflow, cutting connection", r.id, seat)
			s.Kick(conn.CloseNormal, "send queue overflow")
		}
	}
}

// sendChat fans a chat frame to every connected seat and mirrors it for
// spectators.
func (r *Runtime) sendChat(frame []byte) {
	if r.finished {
		return
	}
	for seat := range r.sessions {
		r.send(seat, frame)
	}
	r.ctrl.relay.PublishEvent(r.id, frame)
}

// replaceWithAI evicts the human from seat and hands it to the stand-in
// for the rest of the game.
func (r *Runtime) replaceWithAI(seat, code int, reason string) {
	r.ai[seat] = true
	r.timers.Cancel(seat)
	if t := r.grace[seat]; t != nil {
		t.Stop()
		r.grace[seat] = nil
	}
	if s := r.sessions[seat]; s != nil {
		r.ctrl.store.Remove(s)
		s.Kick(code, reason)
		r.sessions[seat] = nil
	}
}

// finishGame closes the table after the game_end fan-out: persists the
// result, seals the replay, and schedules the goodbye kicks after a
// linger so queued frames drain first.
func (r *Runtime) finishGame(end *riichi.GameEndEvent) {
	r.finished = true
	r.timers.CancelAll()
	for seat, t := range r.grace {
		if t != nil {
			t.Stop()
			r.grace[seat] = nil
		}
	}

	standings := make([]entity.StandingRecord, 0, len(end.Standings))
	for _, st := range end.Standings {
		standings = append(standings, entity.StandingRecord{
			Rank:  st.Rank,
			Seat:  st.Seat,
			Name:  st.Name,
			Score: st.Score,
		})
	}
	r.ctrl.persistFinish(r.id, end.Reason, standings)

	if err := r.ctrl.sink.Finalize(r.id); err != nil {
		log.Error("game %s: finalize replay: %v", r.id, err)
	}

	var parting []*conn.Session
	for _, s := range r.sessions {
		if s == nil {
			continue
		}
		r.ctrl.store.Remove(s)
		parting = append(parting, s)
	}
	time.AfterFunc(closeLinger, func() {
		for _, s := range parting {
			s.Kick(conn.CloseNormal, "game over")
		}
	})

	r.ctrl.retireGame(r.id)
	r.exec.Stop()
	log.Info("game %s finished: %s", r.id, end.Reason)
}

// abortGame tears the table down after an engine invariant failure.
// Unlike a normal finish there is nothing worth lingering for; every
// client is cut at once with the invariant close code.
func (r *Runtime) abortGame(cause error) {
	if r.finished {
		return
	}
	log.Error("game %s aborted: %v", r.id, cause)
	r.teardown(conn.CloseInvariant, "internal error")
}

// shutdown ends an unfinished game because the process is going away.
func (r *Runtime) shutdown() {
	if r.finished {
		return
	}
	log.Info("game %s closing with the server", r.id)
	r.teardown(conn.CloseNormal, "server shutting down")
}

func (r *Runtime) teardown(code int, reason string) {
	r.finished = true
	r.timers.CancelAll()
	for seat, t := range r.grace {
		if t != nil {
			t.Stop()
			r.grace[seat] = nil
		}
	}
	r.ctrl.persistFinish(r.id, entity.StatusAborted, nil)
	if err := r.ctrl.sink.Finalize(r.id); err != nil {
		log.Error("game %s: finalize replay: %v", r.id, err)
	}
	for seat, s := range r.sessions {
		if s == nil {
			continue
		}
		r.ctrl.store.Remove(s)
		s.Kick(code, reason)
		r.sessions[seat] = nil
	}
	r.ctrl.retireGame(r.id)
	r.exec.Stop()
}
