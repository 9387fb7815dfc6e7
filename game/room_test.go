package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomFillsToHumanCount(t *testing.T) {
	room, err := NewRoom(1)
	require.NoError(t, err)
	require.Equal(t, 3, room.PlayersNeeded())

	require.NoError(t, room.Join("u1", "Akagi"))
	require.NoError(t, room.Join("u2", "Washizu"))
	require.NoError(t, room.Join("u3", "Wang"))
	assert.Error(t, room.Join("u4", "Hiro"), "room seats only 4-numAI humans")
	assert.Error(t, room.Join("u1", "Akagi again"), "one seat per user")

	assert.False(t, room.ReadyToStart())
	require.NoError(t, room.SetReady("u1", true))
	require.NoError(t, room.SetReady("u2", true))
	require.NoError(t, room.SetReady("u3", true))
	assert.True(t, room.ReadyToStart())
}

func TestNewRoomRejectsFullAITable(t *testing.T) {
	_, err := NewRoom(4)
	assert.Error(t, err)
	_, err = NewRoom(-1)
	assert.Error(t, err)
}

func TestHostPassesInJoinOrder(t *testing.T) {
	room, err := NewRoom(1)
	require.NoError(t, err)

	require.NoError(t, room.Join("u1", "Akagi"))
	require.NoError(t, room.Join("u2", "Washizu"))
	assert.Equal(t, "u1", room.Host())

	require.NoError(t, room.Leave("u1"))
	assert.Equal(t, "u2", room.Host())
}

func TestBeginTransitionHasOneWinner(t *testing.T) {
	room, err := NewRoom(3)
	require.NoError(t, err)
	require.NoError(t, room.Join("u1", "Solo"))
	require.NoError(t, room.SetReady("u1", true))

	require.True(t, room.BeginTransition())
	assert.False(t, room.BeginTransition(), "second claimant must back off")

	// A failed start reopens the room for another attempt.
	room.FinishTransition(false)
	assert.True(t, room.BeginTransition())

	room.FinishTransition(true)
	assert.Equal(t, RoomPlaying, room.Status())
	assert.Error(t, room.Join("u2", "Late"))
	assert.Error(t, room.Leave("u1"))
	assert.Error(t, room.SetReady("u1", false))
}

func TestRoomManagerRoutesOneRoomPerUser(t *testing.T) {
	rm := NewRoomManager()
	r1, err := rm.CreateRoom(2)
	require.NoError(t, err)
	r2, err := rm.CreateRoom(2)
	require.NoError(t, err)

	_, err = rm.JoinRoom(r1.ID, "u1", "Akagi")
	require.NoError(t, err)
	_, err = rm.JoinRoom(r2.ID, "u1", "Akagi")
	assert.Error(t, err, "a user occupies one room at a time")

	got, ok := rm.GetUserRoom("u1")
	require.True(t, ok)
	assert.Equal(t, r1.ID, got.ID)

	require.NoError(t, rm.LeaveRoom("u1"))
	_, err = rm.JoinRoom(r2.ID, "u1", "Akagi")
	assert.NoError(t, err)
}

func TestDeleteRoomClearsRouting(t *testing.T) {
	rm := NewRoomManager()
	room, err := rm.CreateRoom(2)
	require.NoError(t, err)
	_, err = rm.JoinRoom(room.ID, "u1", "Akagi")
	require.NoError(t, err)

	rm.DeleteRoom(room.ID)

	_, ok := rm.GetRoom(room.ID)
	assert.False(t, ok)
	_, ok = rm.GetUserRoom("u1")
	assert.False(t, ok)

	rooms, users := rm.Stats()
	assert.Zero(t, rooms)
	assert.Zero(t, users)
}
