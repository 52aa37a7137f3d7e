package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLayersFilesAndEnv(t *testing.T) {
	dir := t.TempDir()
	base := `
app:
  http_addr: ":8080"
  log_level: info
mysql:
  dsn: "u:p@tcp(db:3306)/gstore"
payment:
  provider: grpc
grpc_payment:
  target: pay:9090
security:
  jwt_secret: s3cret
  ttl: 30m
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(base), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "staging.yaml"), []byte("app:\n  log_level: warn\n"), 0o600))
	t.Setenv("GSTORE_MYSQL__DSN", "other:pw@tcp(db2:3306)/gstore")

	cfg, err := Load(dir, "staging")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.App.HTTPAddr)
	assert.Equal(t, "warn", cfg.App.LogLevel)
	assert.Equal(t, "other:pw@tcp(db2:3306)/gstore", cfg.MySQL.DSN)
	assert.Equal(t, "pay:9090", cfg.GrpcServer.Target)
	assert.Equal(t, 30*time.Minute, cfg.Security.TTL)
}

func TestLoadMissingEnvFileIsOptional(t *testing.T) {
	dir := t.TempDir()
	base := "app:\n  http_addr: \":1\"\nmysql:\n  dsn: x\npayment:\n  provider: grpc\ngrpc_payment:\n  target: t\nsecurity:\n  jwt_secret: s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(base), 0o600))

	_, err := Load(dir, "prod")
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.App.HTTPAddr = ":8080"
		c.MySQL.DSN = "dsn"
		c.Security.JWTSecret = "s"
		c.Payment.Provider = PaymentProviderGRPC
		c.GrpcServer.Target = "localhost:9090"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid grpc", mutate: func(*Config) {}},
		{name: "missing addr", mutate: func(c *Config) { c.App.HTTPAddr = "" }, wantErr: "app.http_addr"},
		{name: "missing dsn", mutate: func(c *Config) { c.MySQL.DSN = "" }, wantErr: "mysql.dsn"},
		{name: "missing jwt secret", mutate: func(c *Config) { c.Security.JWTSecret = "" }, wantErr: "jwt_secret"},
		{name: "stripe without key", mutate: func(c *Config) { c.Payment.Provider = PaymentProviderStripe }, wantErr: "secret_key"},
		{name: "stripe with key", mutate: func(c *Config) {
			c.Payment.Provider = PaymentProviderStripe
			c.Payment.Stripe.SecretKey = "sk_test_x"
		}},
		{name: "grpc without target", mutate: func(c *Config) { c.GrpcServer.Target = "" }, wantErr: "grpc_payment.target"},
		{name: "unknown provider", mutate: func(c *Config) { c.Payment.Provider = "paypal" }, wantErr: "payment.provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
