package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aq2208/gstore-api/internal/usecase"
	"github.com/redis/go-redis/v9"
)

const (
	cartKeyPrefix = "cart:view:"
	homeKey       = "catalog:home"
)

// RedisCache holds the cart and home page read models as JSON.
type RedisCache struct {
	rdb     *redis.Client
	cartTTL time.Duration
	homeTTL time.Duration
}

func NewRedisCache(rdb *redis.Client, cartTTL, homeTTL time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, cartTTL: cartTTL, homeTTL: homeTTL}
}

func (r *RedisCache) GetCart(ctx context.Context, userID string) (*usecase.CartView, bool, error) {
	var v usecase.CartView
	ok, err := r.get(ctx, cartKeyPrefix+userID, &v)
	if !ok || err != nil {
		return nil, false, err
	}
	return &v, true, nil
}

func (r *RedisCache) SetCart(ctx context.Context, userID string, v *usecase.CartView) error {
	return r.set(ctx, cartKeyPrefix+userID, v, r.cartTTL)
}

func (r *RedisCache) InvalidateCart(ctx context.Context, userID string) error {
	return r.rdb.Del(ctx, cartKeyPrefix+userID).Err()
}

func (r *RedisCache) GetHome(ctx context.Context) (*usecase.HomeView, bool, error) {
	var v usecase.HomeView
	ok, err := r.get(ctx, homeKey, &v)
	if !ok || err != nil {
		return nil, false, err
	}
	return &v, true, nil
}

func (r *RedisCache) SetHome(ctx context.Context, v *usecase.HomeView) error {
	return r.set(ctx, homeKey, v, r.homeTTL)
}

func (r *RedisCache) InvalidateHome(ctx context.Context) error {
	return r.rdb.Del(ctx, homeKey).Err()
}

func (r *RedisCache) get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		// drop undecodable entries so the next read repopulates them
		_ = r.rdb.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

// ttl <= 0 stores without expiry.
func (r *RedisCache) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	return r.rdb.Set(ctx, key, raw, ttl).Err()
}

var (
	_ usecase.CartCache    = (*RedisCache)(nil)
	_ usecase.CatalogCache = (*RedisCache)(nil)
)
