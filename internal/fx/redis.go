package fx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeySnapshot holds the JSON-encoded latest snapshot.
const KeySnapshot = "fx:snapshot"

// RedisCache is a SharedCache on a Redis string key.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisClient connects to addr.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Load(ctx context.Context) (*Snapshot, error) {
	raw, err := c.rdb.Get(ctx, KeySnapshot).Bytes()
	if err != nil {
		return nil, err
	}
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *RedisCache) Save(ctx context.Context, s *Snapshot, ttl time.Duration) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, KeySnapshot, raw, ttl).Err()
}
