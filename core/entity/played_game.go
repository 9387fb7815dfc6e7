package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Game lifecycle states as stored.
const (
	StatusPlaying   = "playing"
	StatusCompleted = "completed"
	StatusAborted   = "aborted"
)

// PlayedGame is the durable record of one table: who sat where, when it
// ran, and how it ended. Hand-by-hand detail lives in the replay log, not
// here.
type PlayedGame struct {
	ID        primitive.ObjectID `bson:"_id"`
	GameID    string             `bson:"game_id"`
	Seats     []SeatRecord       `bson:"seats"`
	StartedAt time.Time          `bson:"started_at"`
	EndedAt   time.Time          `bson:"ended_at,omitempty"`
	Duration  int                `bson:"duration"` // seconds
	EndReason string             `bson:"end_reason,omitempty"`
	Standings []StandingRecord   `bson:"standings,omitempty"`
	Status    string             `bson:"status"`
	CreatedAt time.Time          `bson:"created_at"`
}

// SeatRecord pins a participant to a seat for the game's lifetime.
type SeatRecord struct {
	Seat int    `bson:"seat"`
	Name string `bson:"name"`
	IsAI bool   `bson:"is_ai"`
}

// StandingRecord is one line of the final table.
type StandingRecord struct {
	Rank  int    `bson:"rank"`
	Seat  int    `bson:"seat"`
	Name  string `bson:"name"`
	Score int    `bson:"score"`
}

// NewPlayedGame opens the record when the table starts.
func NewPlayedGame(gameID string, seats []SeatRecord) *PlayedGame {
	now := time.Now()
	return &PlayedGame{
		ID:        primitive.NewObjectID(),
		GameID:    gameID,
		Seats:     seats,
		StartedAt: now,
		Status:    StatusPlaying,
		CreatedAt: now,
	}
}

// Finish closes the record. An aborted game keeps whatever standings the
// caller could still compute, usually none.
func (pg *PlayedGame) Finish(endedAt time.Time, reason string, standings []StandingRecord) {
	pg.EndedAt = endedAt
	pg.Duration = int(endedAt.Sub(pg.StartedAt).Seconds())
	pg.EndReason = reason
	pg.Standings = standings
	if reason == StatusAborted {
		pg.Status = StatusAborted
	} else {
		pg.Status = StatusCompleted
	}
}

// Finished reports whether the record has been closed.
func (pg *PlayedGame) Finished() bool {
	return pg.Status != StatusPlaying
}
