package game

import (
	"fmt"
	"sync"

	"github.com/janryu/janryu/common/log"
)

// RoomManager tracks waiting and playing rooms plus the user→room routing
// map. All game-state mutation lives behind the per-game executors; the
// manager only guards its own maps.
type RoomManager struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	userRoom map[string]string
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms:    make(map[string]*Room),
		userRoom: make(map[string]string),
	}
}

// CreateRoom opens a room seating 4−numAI humans.
func (rm *RoomManager) CreateRoom(numAI int) (*Room, error) {
	room, err := NewRoom(numAI)
	if err != nil {
		return nil, err
	}

	rm.mu.Lock()
	rm.rooms[room.ID] = room
	rm.mu.Unlock()

	log.Info("room %s created, humans needed: %d, ai: %d", room.ID, room.PlayersNeeded(), numAI)
	return room, nil
}

func (rm *RoomManager) GetRoom(roomID string) (*Room, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	room, ok := rm.rooms[roomID]
	return room, ok
}

// GetUserRoom resolves the room a user currently occupies.
func (rm *RoomManager) GetUserRoom(user string) (*Room, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	roomID, ok := rm.userRoom[user]
	if !ok {
		return nil, false
	}
	room, ok := rm.rooms[roomID]
	return room, ok
}

// JoinRoom routes user into roomID. A user occupies at most one room.
func (rm *RoomManager) JoinRoom(roomID, user, name string) (*Room, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if otherID, ok := rm.userRoom[user]; ok {
		return nil, fmt.Errorf("user %s already in room %s", user, otherID)
	}
	room, ok := rm.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	if err := room.Join(user, name); err != nil {
		return nil, err
	}
	rm.userRoom[user] = roomID

	log.Info("room %s: %s joined (%d/%d)", roomID, user, len(room.Members()), room.PlayersNeeded())
	return room, nil
}

// LeaveRoom removes user from whatever room holds them.
func (rm *RoomManager) LeaveRoom(user string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	roomID, ok := rm.userRoom[user]
	if !ok {
		return fmt.Errorf("user %s not in any room", user)
	}
	room, ok := rm.rooms[roomID]
	if !ok {
		delete(rm.userRoom, user)
		return nil
	}
	if err := room.Leave(user); err != nil {
		return err
	}
	delete(rm.userRoom, user)

	log.Info("room %s: %s left", roomID, user)
	return nil
}

// DeleteRoom drops the room and every routing entry pointing at it.
func (rm *RoomManager) DeleteRoom(roomID string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[roomID]
	if !ok {
		return
	}
	for _, m := range room.Members() {
		delete(rm.userRoom, m.User)
	}
	delete(rm.rooms, roomID)

	log.Info("room %s deleted", roomID)
}

// Stats counts rooms and routed users, for the monitor.
func (rm *RoomManager) Stats() (rooms, users int) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms), len(rm.userRoom)
}
