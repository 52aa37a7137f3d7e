package cache

import (
	"context"
	"errors"
	"time"

	"github.com/aq2208/gstore-api/internal/usecase"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix   = "idem:lock:"
	resultKeyPrefix = "idem:result:"
)

// RedisIdempotencyStore guards checkout retries. A lock marks a request in
// flight; the result key maps the client key (or a payment session) to the
// order it completed.
type RedisIdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisIdempotencyStore(rdb *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{rdb: rdb, ttl: ttl}
}

func scoped(prefix, scope, key string) string {
	return prefix + scope + ":" + key
}

func (s *RedisIdempotencyStore) TryLock(ctx context.Context, scope, key string) (bool, error) {
	return s.rdb.SetNX(ctx, scoped(lockKeyPrefix, scope, key), time.Now().Unix(), s.ttl).Result()
}

// Release frees a lock whose request failed so the key can be retried.
func (s *RedisIdempotencyStore) Release(ctx context.Context, scope, key string) error {
	return s.rdb.Del(ctx, scoped(lockKeyPrefix, scope, key)).Err()
}

func (s *RedisIdempotencyStore) Remember(ctx context.Context, scope, key, orderID string) error {
	return s.rdb.Set(ctx, scoped(resultKeyPrefix, scope, key), orderID, s.ttl).Err()
}

func (s *RedisIdempotencyStore) Recall(ctx context.Context, scope, key string) (string, bool, error) {
	orderID, err := s.rdb.Get(ctx, scoped(resultKeyPrefix, scope, key)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return orderID, true, nil
}

var _ usecase.IdempotencyStore = (*RedisIdempotencyStore)(nil)
