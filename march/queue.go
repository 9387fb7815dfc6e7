package march

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/janryu/janryu/common/database"
	"github.com/janryu/janryu/common/log"
)

const (
	queueKey      = "march:queue"        // sorted set, score = enqueue time
	playerNameKey = "march:player:names" // hash, user -> display name
	playerNameTTL = 30 * time.Minute
)

// popScript atomically takes up to ARGV[1] players off the head of the
// queue together with their display names, so two pool ticks can never
// match the same player twice.
//
// KEYS[1]: queue sorted set, KEYS[2]: name hash.
// Returns a flat [user1, name1, user2, name2, ...] array.
var popScript = redis.NewScript(`
local queueKey = KEYS[1]
local nameKey = KEYS[2]
local count = tonumber(ARGV[1])
local result = {}

local players = redis.call('ZRANGE', queueKey, 0, count - 1)
if #players == 0 then
    return result
end

for i = 1, #players do
    local user = players[i]
    local name = redis.call('HGET', nameKey, user)
    if name == false then
        name = user
    end
    redis.call('ZREM', queueKey, user)
    redis.call('HDEL', nameKey, user)
    table.insert(result, user)
    table.insert(result, name)
end

return result
`)

// QueuedPlayer is one quick-match entrant.
type QueuedPlayer struct {
	User string
	Name string
}

// Queue is the redis-backed quick-match pool. Scores are enqueue unix
// times, so pops are strictly first come, first served.
type Queue struct {
	redis *database.RedisManager
}

func NewQueue(r *database.RedisManager) *Queue {
	return &Queue{redis: r}
}

// Join enqueues a player. Double joins are rejected rather than refreshed
// so a player cannot reset their place in line.
func (q *Queue) Join(ctx context.Context, user, name string) error {
	cli, err := q.redis.GetClient()
	if err != nil {
		return err
	}

	_, err = cli.ZScore(ctx, queueKey, user).Result()
	if err == nil {
		return ErrAlreadyQueued
	}
	if !errors.Is(err, redis.Nil) {
		return fmt.Errorf("queue state for %s: %w", user, err)
	}

	pipe := cli.Pipeline()
	pipe.ZAdd(ctx, queueKey, redis.Z{Score: float64(time.Now().Unix()), Member: user})
	pipe.HSet(ctx, playerNameKey, user, name)
	pipe.Expire(ctx, playerNameKey, playerNameTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("join queue: %w", err)
	}

	log.Debug("quick match: %s queued", user)
	return nil
}

// Leave withdraws a player.
func (q *Queue) Leave(ctx context.Context, user string) error {
	cli, err := q.redis.GetClient()
	if err != nil {
		return err
	}

	removed, err := cli.ZRem(ctx, queueKey, user).Result()
	if err != nil {
		return fmt.Errorf("leave queue: %w", err)
	}
	cli.HDel(ctx, playerNameKey, user)
	if removed == 0 {
		return ErrNotQueued
	}
	return nil
}

// Pop atomically takes up to count players from the head of the line.
func (q *Queue) Pop(ctx context.Context, count int) ([]QueuedPlayer, error) {
	if count <= 0 {
		return nil, nil
	}
	cli, err := q.redis.GetClient()
	if err != nil {
		return nil, err
	}

	result, err := popScript.Run(ctx, cli, []string{queueKey, playerNameKey}, count).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("pop queue: %w", err)
	}

	arr, ok := result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("pop queue: unexpected script result %T", result)
	}
	players := make([]QueuedPlayer, 0, len(arr)/2)
	for i := 0; i+1 < len(arr); i += 2 {
		user, _ := arr[i].(string)
		name, _ := arr[i+1].(string)
		players = append(players, QueuedPlayer{User: user, Name: name})
	}
	return players, nil
}

// Size reports how many players are waiting.
func (q *Queue) Size(ctx context.Context) (int, error) {
	cli, err := q.redis.GetClient()
	if err != nil {
		return 0, err
	}
	n, err := cli.ZCard(ctx, queueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("queue size: %w", err)
	}
	return int(n), nil
}

// DropExpired removes players waiting longer than maxWait and returns
// who was dropped.
func (q *Queue) DropExpired(ctx context.Context, maxWait time.Duration) ([]string, error) {
	cli, err := q.redis.GetClient()
	if err != nil {
		return nil, err
	}

	cutoff := float64(time.Now().Add(-maxWait).Unix())
	expired, err := cli.ZRangeByScore(ctx, queueKey, &redis.ZRangeBy{
		Min: "0",
		Max: fmt.Sprintf("%.0f", cutoff),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("expired players: %w", err)
	}
	if len(expired) == 0 {
		return nil, nil
	}

	pipe := cli.Pipeline()
	for _, user := range expired {
		pipe.ZRem(ctx, queueKey, user)
		pipe.HDel(ctx, playerNameKey, user)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("drop expired: %w", err)
	}

	log.Info("quick match: dropped %d players waiting over %v", len(expired), maxWait)
	return expired, nil
}
