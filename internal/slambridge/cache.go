package slambridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/config"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/objmap"
)

// RedisSessionCache keeps query sessions in Redis so several server replicas
// can share them. Maps are stored as their JSON encoding under
// prefix+sessionID. It satisfies the query layer's session cache interface.
type RedisSessionCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSessionCache connects a session cache to the Redis instance named in
// cfg. A zero ttl stores sessions without expiry.
func NewSessionCache(cfg config.Redis, ttl time.Duration) *RedisSessionCache {
	return &RedisSessionCache{
		rdb:    redis.NewClient(&redis.Options{Addr: cfg.Addr}),
		prefix: cfg.SessionPrefix,
		ttl:    ttl,
	}
}

// Put stores the map under id, refreshing the TTL.
func (c *RedisSessionCache) Put(ctx context.Context, id string, m *objmap.Map) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", id, err)
	}
	if err := c.rdb.Set(ctx, c.prefix+id, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("storing session %s: %w", id, err)
	}
	return nil
}

// Get loads the map stored under id. A missing or expired session returns
// found=false with no error.
func (c *RedisSessionCache) Get(ctx context.Context, id string) (*objmap.Map, bool, error) {
	data, err := c.rdb.Get(ctx, c.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading session %s: %w", id, err)
	}

	var m objmap.Map
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return &m, true, nil
}

// Delete removes a session. Deleting an absent session is not an error.
func (c *RedisSessionCache) Delete(ctx context.Context, id string) error {
	if err := c.rdb.Del(ctx, c.prefix+id).Err(); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}

// Close releases the client.
func (c *RedisSessionCache) Close() error {
	return c.rdb.Close()
}
