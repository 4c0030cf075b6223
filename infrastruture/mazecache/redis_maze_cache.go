// Package mazecache keeps seeded mazes in redis so repeated runs over the same seed skip generation.
package mazecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/beka-birhanu/maze-swarm/maze"
	"github.com/beka-birhanu/maze-swarm/service/i"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "maze-swarm"
	mazeKeyFmt    = "%s:maze:%dx%d:%d"
	lockSuffix    = ":build_lock"
)

// RedisMazeCache serves mazes from redis and falls back to another source on a miss.
// Mazes with a zero seed are random by definition and never cached.
type RedisMazeCache struct {
	client *redis.Client
	locker *redsync.Redsync
	source i.MazeSource
	logger i.Logger
	prefix string
	ttl    time.Duration
}

type Config struct {
	Client     *redis.Client
	Source     i.MazeSource
	Logger     i.Logger
	Prefix     string
	TTLSeconds int
}

func New(c Config) (*RedisMazeCache, error) {
	if c.Client == nil || c.Source == nil || c.Logger == nil {
		return nil, errors.New("maze cache needs a redis client, a source and a logger")
	}
	if c.Prefix == "" {
		c.Prefix = defaultPrefix
	}
	return &RedisMazeCache{
		client: c.Client,
		locker: redsync.New(goredis.NewPool(c.Client)),
		source: c.Source,
		logger: c.Logger,
		prefix: c.Prefix,
		ttl:    time.Duration(c.TTLSeconds) * time.Second,
	}, nil
}

// Maze returns the cached maze for the normalised dimensions and seed, building it once
// across all instances when it is missing.
func (mc *RedisMazeCache) Maze(ctx context.Context, width, height int, seed int64) (*maze.Grid, error) {
	if seed == 0 {
		return mc.source.Maze(ctx, width, height, seed)
	}

	key := Key(mc.prefix, width, height, seed)
	if grid, ok := mc.lookup(ctx, key); ok {
		return grid, nil
	}

	mutex := mc.locker.NewMutex(key + lockSuffix)
	if err := mutex.LockContext(ctx); err != nil {
		mc.logger.Warning(fmt.Sprintf("maze cache lock %s: %s", key, err))
		return mc.source.Maze(ctx, width, height, seed)
	}
	defer func() {
		_, _ = mutex.UnlockContext(ctx)
	}()

	if grid, ok := mc.lookup(ctx, key); ok {
		return grid, nil
	}

	grid, err := mc.source.Maze(ctx, width, height, seed)
	if err != nil {
		return nil, err
	}
	raw, err := maze.MarshalLayout(grid)
	if err != nil {
		return nil, err
	}
	if err := mc.client.Set(ctx, key, raw, mc.ttl).Err(); err != nil {
		mc.logger.Warning(fmt.Sprintf("caching maze %s: %s", key, err))
	}
	return grid, nil
}

func (mc *RedisMazeCache) lookup(ctx context.Context, key string) (*maze.Grid, bool) {
	raw, err := mc.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			mc.logger.Warning(fmt.Sprintf("reading maze %s: %s", key, err))
		}
		return nil, false
	}

	grid, err := maze.UnmarshalLayout(raw)
	if err != nil {
		mc.logger.Warning(fmt.Sprintf("dropping corrupt maze %s: %s", key, err))
		_ = mc.client.Del(ctx, key).Err()
		return nil, false
	}
	return grid, true
}

// Key is the redis key of a seeded maze. Dimensions are normalised first so that
// requests the generator treats alike share an entry.
func Key(prefix string, width, height int, seed int64) string {
	w, h := maze.NormalizeDimensions(width, height)
	return fmt.Sprintf(mazeKeyFmt, prefix, w, h, seed)
}
