package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aq2208/gstore-api/configs"
	grpcgw "github.com/aq2208/gstore-api/internal/adapter/grpc"
	httpapi "github.com/aq2208/gstore-api/internal/adapter/http"
	"github.com/aq2208/gstore-api/internal/adapter/http/middleware"
	"github.com/aq2208/gstore-api/internal/adapter/kafka"
	"github.com/aq2208/gstore-api/internal/adapter/observ"
	"github.com/aq2208/gstore-api/internal/adapter/payment"
	"github.com/aq2208/gstore-api/internal/adapter/queue"
	"github.com/aq2208/gstore-api/internal/bootstrap"
	"github.com/aq2208/gstore-api/internal/logging"
	"github.com/aq2208/gstore-api/internal/security"
	"github.com/aq2208/gstore-api/internal/usecase"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Run starts the API and its workers and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg configs.Config, env string) error {
	logger := logging.Init(cfg.App.Name, cfg.App.LogFile, cfg.App.LogLevel)
	ctx = logging.WithCtx(ctx, logger)
	if env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Info("gstore-api: starting up", "env", env, "addr", cfg.App.HTTPAddr, "payment_provider", cfg.Payment.Provider)

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	db, err := bootstrap.OpenMySQL(ctx, cfg)
	if err != nil {
		return err
	}
	closers = append(closers, func() { _ = db.Close() })

	rdb, err := bootstrap.OpenRedis(ctx, cfg)
	if err != nil {
		return err
	}
	closers = append(closers, func() { _ = rdb.Close() })

	gw, closeGW, err := newGateway(cfg)
	if err != nil {
		return err
	}
	closers = append(closers, closeGW)

	svc := bootstrap.NewServices(cfg, db, rdb, gw)

	mq, err := amqp.Dial(cfg.Rabbit.URL)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	closers = append(closers, func() { _ = mq.Close() })

	pubCh, err := mq.Channel()
	if err != nil {
		return fmt.Errorf("open publish channel: %w", err)
	}
	topology := queue.Topology{Exchange: cfg.Rabbit.Exchange, Queue: cfg.Rabbit.Queue, BindingKey: cfg.Rabbit.RoutingKey}
	producer, err := queue.NewRabbitProducer(pubCh, topology)
	if err != nil {
		return err
	}

	consCh, err := mq.Channel()
	if err != nil {
		return fmt.Errorf("open consume channel: %w", err)
	}
	mqRouter := queue.NewRouter(consCh, queue.WithPrefetch(cfg.Rabbit.Prefetch), queue.WithLogger(logging.New("rabbitmq")))
	mqRouter.Register(cfg.Rabbit.Queue, queue.NewOrderCompletedHandler(svc.Cache).Handler())
	if err := mqRouter.Start(ctx); err != nil {
		return fmt.Errorf("start rabbitmq router: %w", err)
	}

	var wg sync.WaitGroup
	spawn := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := logging.New(name)
			if err := fn(logging.WithCtx(ctx, l)); err != nil && !errors.Is(err, context.Canceled) {
				l.Error("worker stopped", "err", err)
			}
		}()
	}

	relay := usecase.NewOutboxRelay(svc.Store.Outbox(), producer, cfg.Outbox.Interval, cfg.Outbox.BatchSize)
	relay.OnPublish(observ.OutboxPublished)
	spawn("outbox", relay.Run)

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.TopicPayments != "" {
		group, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
		if err != nil {
			return fmt.Errorf("kafka group: %w", err)
		}
		closers = append(closers, func() { _ = group.Close() })
		consumer := kafka.NewConsumer(group, []string{cfg.Kafka.TopicPayments}, kafka.NewPaymentEventHandler(svc.Checkout))
		spawn("kafka", consumer.Start)
	}

	verifier, err := webhookVerifier(cfg)
	if err != nil {
		return err
	}

	handlers := httpapi.Handlers{
		Accounts: httpapi.NewAccountHandler(svc.Accounts),
		Catalog:  httpapi.NewCatalogHandler(svc.Catalog),
		Cart:     httpapi.NewCartHandler(svc.Cart),
		Orders:   httpapi.NewOrderHandler(svc.Checkout, svc.Orders),
		Webhook:  httpapi.NewWebhookHandler(svc.Checkout),
	}
	router := httpapi.NewRouter(handlers, middleware.NewAuthz(svc.Tokens), httpapi.RouterOptions{
		Logger:          logging.New("http"),
		RequestTimeout:  cfg.HTTP.RequestTimeout,
		WebhookVerifier: verifier,
	})

	srv := &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Error("http shutdown", "err", serr)
	}
	wg.Wait()
	logger.Info("gstore-api: stopped")
	return err
}

func newGateway(cfg configs.Config) (usecase.PaymentGateway, func(), error) {
	switch cfg.Payment.Provider {
	case configs.PaymentProviderStripe:
		return payment.NewStripeGateway(cfg.Payment.Stripe.SecretKey, nil), func() {}, nil
	case configs.PaymentProviderGRPC:
		conn, err := grpcgw.NewGrpcClient(cfg).Dial()
		if err != nil {
			return nil, nil, fmt.Errorf("dial payment service: %w", err)
		}
		return grpcgw.NewPaymentClient(conn, cfg.Payment.Timeout), func() { _ = conn.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown payment provider %q", cfg.Payment.Provider)
}

// webhookVerifier returns nil when no webhook key is configured.
func webhookVerifier(cfg configs.Config) (security.Signer, error) {
	if cfg.Payment.WebhookPubPEM == "" {
		logging.Base().Warn("payment webhook disabled: payment.webhook_pub_pem not set")
		return nil, nil
	}
	pub, err := security.LoadRSAPublicKey(cfg.Payment.WebhookPubPEM)
	if err != nil {
		return nil, fmt.Errorf("load webhook key: %w", err)
	}
	return security.NewRSASigner(pub, nil)
}
