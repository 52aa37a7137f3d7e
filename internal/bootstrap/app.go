package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aq2208/gstore-api/configs"
	"github.com/aq2208/gstore-api/internal/adapter/cache"
	"github.com/aq2208/gstore-api/internal/adapter/observ"
	"github.com/aq2208/gstore-api/internal/adapter/repo"
	"github.com/aq2208/gstore-api/internal/security"
	"github.com/aq2208/gstore-api/internal/usecase"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
)

// OpenMySQL opens the pool and pings it within 10s.
func OpenMySQL(ctx context.Context, cfg configs.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

func OpenRedis(ctx context.Context, cfg configs.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// Services are the use cases shared by the API server and the CLI.
type Services struct {
	Store    *repo.MySQLStore
	Cache    *cache.RedisCache
	Accounts *usecase.Accounts
	Catalog  *usecase.Catalog
	Cart     *usecase.Cart
	Checkout *usecase.Checkout
	Orders   *usecase.Orders
	Tokens   *security.JWT
}

// NewServices wires the use cases; gw may be nil for callers that never
// start a payment (the CLI).
func NewServices(cfg configs.Config, db *sql.DB, rdb *redis.Client, gw usecase.PaymentGateway) *Services {
	store := repo.NewMySQLStore(db)
	rc := cache.NewRedisCache(rdb, cfg.Cache.CartTTL, cfg.Cache.HomeTTL)
	idem := cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)
	tokens := security.NewJWT(cfg.Security.JWTSecret, cfg.Security.Issuer, cfg.Security.Audience, cfg.Security.TTL)

	return &Services{
		Store:    store,
		Cache:    rc,
		Accounts: usecase.NewAccounts(store, security.NewBcryptHasher(cfg.Security.BcryptCost), tokens),
		Catalog:  usecase.NewCatalog(store, rc),
		Cart:     usecase.NewCart(store, rc, rc),
		Checkout: usecase.NewCheckout(store, gw, idem, rc, rc, observ.Recorder{}, usecase.CheckoutConfig{
			AppURL:   cfg.App.PublicURL,
			Currency: cfg.Payment.Currency,
		}),
		Orders: usecase.NewOrders(store),
		Tokens: tokens,
	}
}
