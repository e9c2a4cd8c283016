package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const grantKeyPrefix = "grant:"

// RedisGrantStore shares grants across instances. Redis expires keys
// server-side, so Sweep is a no-op here.
type RedisGrantStore struct {
	client *redis.Client
}

func NewRedisGrantStore(client *redis.Client) *RedisGrantStore {
	return &RedisGrantStore{client: client}
}

func (s *RedisGrantStore) Put(ctx context.Context, key string, grant Grant, ttl time.Duration) error {
	data, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("marshal grant: %w", err)
	}
	return s.client.Set(ctx, grantKeyPrefix+key, data, ttl).Err()
}

func (s *RedisGrantStore) Scan(ctx context.Context, fn func(key string, grant Grant) bool) error {
	iter := s.client.Scan(ctx, 0, grantKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := s.client.Get(ctx, iter.Val()).Result()
		if errors.Is(err, redis.Nil) {
			// Expired between SCAN and GET.
			continue
		}
		if err != nil {
			return err
		}
		var grant Grant
		if err := json.Unmarshal([]byte(raw), &grant); err != nil {
			return fmt.Errorf("unmarshal grant %s: %w", iter.Val(), err)
		}
		if !fn(iter.Val()[len(grantKeyPrefix):], grant) {
			return nil
		}
	}
	return iter.Err()
}

func (s *RedisGrantStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, grantKeyPrefix+key).Err()
}

func (s *RedisGrantStore) Sweep(context.Context, time.Time) error {
	// Redis TTLs expire grants natively.
	return nil
}
