package game

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Seats at a riichi table.
const MaxPlayers = 4

type RoomStatus int

const (
	RoomWaiting RoomStatus = iota
	RoomPlaying
	RoomFinished
)

func (s RoomStatus) String() string {
	switch s {
	case RoomWaiting:
		return "waiting"
	case RoomPlaying:
		return "playing"
	case RoomFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// RoomMember is one human slot. Ready flips via SetReady; the game starts
// when the room is full and every member is ready.
type RoomMember struct {
	User  string
	Name  string
	Ready bool
}

// Room gathers the humans for one table. The room ID doubles as the game
// ID once the table starts, so tickets minted at join time already name
// the right websocket path.
type Room struct {
	ID        string
	NumAI     int
	CreatedAt time.Time

	mu      sync.RWMutex
	status  RoomStatus
	host    string
	members []*RoomMember

	// transitioning blocks a second start racing the first when two
	// ready-flips trigger together.
	transitioning bool
}

// GenerateGameID builds g_<timestamp>_<random>.
func GenerateGameID() string {
	random := make([]byte, 4)
	rand.Read(random)
	return fmt.Sprintf("g_%d_%s", time.Now().Unix(), hex.EncodeToString(random))
}

// NewRoom creates a waiting room that seats 4−numAI humans.
func NewRoom(numAI int) (*Room, error) {
	if numAI < 0 || numAI > MaxPlayers-1 {
		return nil, fmt.Errorf("numAI %d out of range, need at least one human", numAI)
	}
	return &Room{
		ID:        GenerateGameID(),
		NumAI:     numAI,
		CreatedAt: time.Now(),
		status:    RoomWaiting,
	}, nil
}

// PlayersNeeded is the human headcount that fills the room.
func (r *Room) PlayersNeeded() int {
	return MaxPlayers - r.NumAI
}

// Join adds user with ready unset. The first human in becomes host.
func (r *Room) Join(user, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != RoomWaiting {
		return fmt.Errorf("room %s is not accepting players", r.ID)
	}
	if len(r.members) >= r.PlayersNeeded() {
		return fmt.Errorf("room %s is full", r.ID)
	}
	for _, m := range r.members {
		if m.User == user {
			return fmt.Errorf("user %s already in room %s", user, r.ID)
		}
	}

	r.members = append(r.members, &RoomMember{User: user, Name: name})
	if r.host == "" {
		r.host = user
	}
	return nil
}

// Leave removes user while the room is still waiting. Hosting passes to
// the next member in join order.
func (r *Room) Leave(user string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != RoomWaiting || r.transitioning {
		return fmt.Errorf("room %s already started", r.ID)
	}
	for i, m := range r.members {
		if m.User != user {
			continue
		}
		r.members = append(r.members[:i], r.members[i+1:]...)
		if r.host == user {
			r.host = ""
			if len(r.members) > 0 {
				r.host = r.members[0].User
			}
		}
		return nil
	}
	return fmt.Errorf("user %s not in room %s", user, r.ID)
}

// SetReady flips user's flag.
func (r *Room) SetReady(user string, ready bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != RoomWaiting {
		return fmt.Errorf("room %s already started", r.ID)
	}
	for _, m := range r.members {
		if m.User == user {
			m.Ready = ready
			return nil
		}
	}
	return fmt.Errorf("user %s not in room %s", user, r.ID)
}

// ReadyToStart reports a full room with every flag set.
func (r *Room) ReadyToStart() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.readyLocked()
}

func (r *Room) readyLocked() bool {
	if r.status != RoomWaiting || len(r.members) != r.PlayersNeeded() {
		return false
	}
	for _, m := range r.members {
		if !m.Ready {
			return false
		}
	}
	return true
}

// BeginTransition claims the room-to-game handoff. Exactly one caller per
// ready-trigger wins; everyone else backs off.
func (r *Room) BeginTransition() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.transitioning || !r.readyLocked() {
		return false
	}
	r.transitioning = true
	return true
}

// FinishTransition ends the handoff. A failed start reopens the room.
func (r *Room) FinishTransition(started bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.transitioning = false
	if started {
		r.status = RoomPlaying
	}
}

// SetFinished marks the table done.
func (r *Room) SetFinished() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = RoomFinished
}

func (r *Room) Status() RoomStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

func (r *Room) Host() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.host
}

// Members returns a snapshot in join order.
func (r *Room) Members() []RoomMember {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RoomMember, len(r.members))
	for i, m := range r.members {
		out[i] = *m
	}
	return out
}

// HumanNames lists display names in join order, the matchmaker's input.
func (r *Room) HumanNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.members))
	for i, m := range r.members {
		names[i] = m.Name
	}
	return names
}
