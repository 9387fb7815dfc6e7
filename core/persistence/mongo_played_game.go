package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/janryu/janryu/common/cache"
	"github.com/janryu/janryu/common/database"
	"github.com/janryu/janryu/common/log"
	"github.com/janryu/janryu/core/entity"
	"github.com/janryu/janryu/core/repository"
)

const playedGamesCollection = "played_games"

// MongoPlayedGames persists game records in mongo with a small local read
// cache in front. Reads of finished games dominate (match history), so the
// cache only ever holds finished records.
type MongoPlayedGames struct {
	mongo *database.MongoManager
	cache *cache.ReadCache
}

// NewMongoPlayedGames ensures the unique game_id index and wires the cache.
// cache may be nil.
func NewMongoPlayedGames(mgr *database.MongoManager, c *cache.ReadCache) (repository.PlayedGameRepository, error) {
	coll := mgr.Db.Collection(playedGamesCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "game_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("played_games index: %w", err)
	}

	return &MongoPlayedGames{mongo: mgr, cache: c}, nil
}

func (r *MongoPlayedGames) coll() *mongo.Collection {
	return r.mongo.Db.Collection(playedGamesCollection)
}

func (r *MongoPlayedGames) Create(ctx context.Context, game *entity.PlayedGame) error {
	_, err := r.coll().InsertOne(ctx, game)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrGameAlreadyExists
		}
		log.Error("insert played game %s: %v", game.GameID, err)
		return err
	}
	return nil
}

func (r *MongoPlayedGames) Finish(ctx context.Context, gameID string, endedAt time.Time, reason string, standings []entity.StandingRecord) error {
	status := entity.StatusCompleted
	if reason == entity.StatusAborted {
		status = entity.StatusAborted
	}

	// Matching on status makes the update a no-op for already-finished
	// records, which is what keeps Finish idempotent.
	res, err := r.coll().UpdateOne(ctx,
		bson.M{"game_id": gameID, "status": entity.StatusPlaying},
		bson.M{"$set": bson.M{
			"ended_at":   endedAt,
			"end_reason": reason,
			"standings":  standings,
			"status":     status,
		}})
	if err != nil {
		log.Error("finish played game %s: %v", gameID, err)
		return err
	}
	if res.MatchedCount > 0 {
		r.setDuration(ctx, gameID, endedAt)
		return nil
	}

	// Nothing matched: either the record is already finished or it never
	// existed.
	if _, err := r.ByGameID(ctx, gameID); err != nil {
		return err
	}
	return nil
}

// setDuration backfills the duration from the stored start time.
func (r *MongoPlayedGames) setDuration(ctx context.Context, gameID string, endedAt time.Time) {
	var pg entity.PlayedGame
	if err := r.coll().FindOne(ctx, bson.M{"game_id": gameID}).Decode(&pg); err != nil {
		return
	}
	dur := int(endedAt.Sub(pg.StartedAt).Seconds())
	_, _ = r.coll().UpdateOne(ctx, bson.M{"game_id": gameID}, bson.M{"$set": bson.M{"duration": dur}})
}

func (r *MongoPlayedGames) ByGameID(ctx context.Context, gameID string) (*entity.PlayedGame, error) {
	if v, ok := r.cache.Get(cacheKey(gameID)); ok {
		if pg, ok := v.(*entity.PlayedGame); ok {
			return pg, nil
		}
	}

	var pg entity.PlayedGame
	err := r.coll().FindOne(ctx, bson.M{"game_id": gameID}).Decode(&pg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrGameNotFound
		}
		log.Error("find played game %s: %v", gameID, err)
		return nil, err
	}

	// Live games keep changing; only finished ones are safe to cache.
	if pg.Finished() {
		r.cache.Set(cacheKey(gameID), &pg)
	}
	return &pg, nil
}

func (r *MongoPlayedGames) ByPlayer(ctx context.Context, name string, limit, offset int) ([]*entity.PlayedGame, error) {
	opts := options.Find().
		SetSort(bson.M{"started_at": -1}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := r.coll().Find(ctx, bson.M{"seats.name": name}, opts)
	if err != nil {
		log.Error("find played games for %s: %v", name, err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var games []*entity.PlayedGame
	if err := cursor.All(ctx, &games); err != nil {
		return nil, err
	}
	return games, nil
}

func cacheKey(gameID string) string {
	return "played_game:" + gameID
}
