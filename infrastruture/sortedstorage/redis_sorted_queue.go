package sortedstorage

import (
	"context"
	"time"

	"github.com/beka-birhanu/maze-swarm/service/i"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const dequeueLockSuffix = ":dequeue_lock"

// RedisSortedQueue keeps queued run requests in a redis sorted set scored by request time.
// Popping is serialised across API instances with a redsync mutex.
type RedisSortedQueue struct {
	client *redis.Client
	locker *redsync.Redsync
	ttl    time.Duration
}

// NewRedisSortedQueue initializes a RedisSortedQueue with the provided Redis client and TTL.
func NewRedisSortedQueue(client *redis.Client, ttlSeconds int) (i.SortedQueue, error) {
	queue := &RedisSortedQueue{
		client: client,
		ttl:    time.Duration(ttlSeconds) * time.Second,
	}
	pool := goredis.NewPool(client)
	queue.locker = redsync.New(pool)
	return queue, nil
}

// Enqueue adds a member to the sorted queue and refreshes the expiry of the queue.
func (rsq *RedisSortedQueue) Enqueue(ctx context.Context, queueKey string, score float64, member string) error {
	pipe := rsq.client.TxPipeline()
	pipe.ZAdd(ctx, queueKey, redis.Z{Score: score, Member: member})
	if rsq.ttl > 0 {
		pipe.Expire(ctx, queueKey, rsq.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// DequeTops removes and retrieves up to `amount` members with the lowest scores.
// Nothing is removed while fewer than `amount` members are queued.
func (rsq *RedisSortedQueue) DequeTops(ctx context.Context, queueKey string, amount int64) ([]string, error) {
	mutex := rsq.locker.NewMutex(queueKey + dequeueLockSuffix)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, err
	}
	defer func() {
		_, _ = mutex.UnlockContext(ctx)
	}()

	count, err := rsq.client.ZCard(ctx, queueKey).Result()
	if err != nil || count < amount {
		return nil, err
	}

	popped, err := rsq.client.ZPopMin(ctx, queueKey, amount).Result()
	if err != nil {
		return nil, err
	}
	members := make([]string, 0, len(popped))
	for _, p := range popped {
		if m, ok := p.Member.(string); ok {
			members = append(members, m)
		}
	}
	return members, nil
}

// Count returns the number of members in the sorted queue.
func (rsq *RedisSortedQueue) Count(ctx context.Context, queueKey string) int64 {
	return rsq.client.ZCard(ctx, queueKey).Val()
}
