package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	PaymentProviderStripe = "stripe"
	PaymentProviderGRPC   = "grpc"
)

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
		// Public URL of the storefront, used for gateway redirects.
		PublicURL string `koanf:"public_url"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout    time.Duration `koanf:"read_timeout"`
		WriteTimeout   time.Duration `koanf:"write_timeout"`
		IdleTimeout    time.Duration `koanf:"idle_timeout"`
		RequestTimeout time.Duration `koanf:"request_timeout"`
	} `koanf:"http"`

	MySQL struct {
		DSN             string        `koanf:"dsn"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	} `koanf:"mysql"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Idempotency struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"idempotency"`

	Cache struct {
		CartTTL time.Duration `koanf:"cart_ttl"`
		HomeTTL time.Duration `koanf:"home_ttl"`
	} `koanf:"cache"`

	Rabbit struct {
		URL        string `koanf:"url"`
		Exchange   string `koanf:"exchange"`
		RoutingKey string `koanf:"routing_key"`
		Queue      string `koanf:"queue"`
		Prefetch   int    `koanf:"prefetch"`
	} `koanf:"rabbitmq"`

	Kafka struct {
		Brokers       []string `koanf:"brokers"`
		GroupID       string   `koanf:"group_id"`
		TopicPayments string   `koanf:"topic_payments"`
	} `koanf:"kafka"`

	Outbox struct {
		Interval  time.Duration `koanf:"interval"`
		BatchSize int           `koanf:"batch_size"`
	} `koanf:"outbox"`

	Payment struct {
		Provider string        `koanf:"provider"`
		Currency string        `koanf:"currency"`
		Timeout  time.Duration `koanf:"timeout"`
		Stripe   struct {
			SecretKey string `koanf:"secret_key"`
		} `koanf:"stripe"`
		// WebhookPubPEM verifies signatures on POST /v1/payments/webhook.
		WebhookPubPEM string `koanf:"webhook_pub_pem"`
	} `koanf:"payment"`

	GrpcServer struct {
		Target       string        `koanf:"target"`
		UseTLS       bool          `koanf:"use_tls"`
		CACertPath   string        `koanf:"ca_cert_path"`
		ServerName   string        `koanf:"server_name"`
		Timeout      time.Duration `koanf:"timeout"`
		MaxRecvBytes int           `koanf:"max_recv_bytes"`
		MaxSendBytes int           `koanf:"max_send_bytes"`
	} `koanf:"grpc_payment"`

	Security struct {
		JWTSecret  string        `koanf:"jwt_secret"`
		Issuer     string        `koanf:"issuer"`
		Audience   string        `koanf:"audience"`
		TTL        time.Duration `koanf:"ttl"`
		BcryptCost int           `koanf:"bcrypt_cost"`
	} `koanf:"security"`
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env override (dev/staging/prod). Optional: allow missing for local runs.
	_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())

	// 3) environment variables override (prefix GSTORE_, nested with __)
	// e.g. GSTORE_MYSQL__DSN, GSTORE_PAYMENT__STRIPE__SECRET_KEY
	if err := k.Load(env.Provider("GSTORE_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "GSTORE_")
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	if c.MySQL.DSN == "" {
		return fmt.Errorf("mysql.dsn required")
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret required")
	}
	switch c.Payment.Provider {
	case PaymentProviderStripe:
		if c.Payment.Stripe.SecretKey == "" {
			return fmt.Errorf("payment.stripe.secret_key required for provider %q", c.Payment.Provider)
		}
	case PaymentProviderGRPC:
		if c.GrpcServer.Target == "" {
			return fmt.Errorf("grpc_payment.target required for provider %q", c.Payment.Provider)
		}
	default:
		return fmt.Errorf("payment.provider must be %q or %q", PaymentProviderStripe, PaymentProviderGRPC)
	}
	return nil
}
