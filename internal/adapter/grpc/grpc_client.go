package grpc

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"
	"time"

	"github.com/aq2208/gstore-api/configs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

var ErrBadCACert = errors.New("unable to parse CA cert")

type GrpcClient struct {
	cfg configs.Config
}

func NewGrpcClient(cfg configs.Config) *GrpcClient {
	return &GrpcClient{cfg: cfg}
}

// Dial creates a lazily connecting client for the payment service. extra
// options are appended last.
func (c *GrpcClient) Dial(extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	gc := c.cfg.GrpcServer
	connectTimeout := gc.Timeout
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}

	opts := []grpc.DialOption{
		grpc.WithConnectParams(grpc.ConnectParams{
			Backoff: backoff.Config{
				BaseDelay:  200 * time.Millisecond,
				Multiplier: 1.6,
				Jitter:     0.2,
				MaxDelay:   5 * time.Second,
			},
			MinConnectTimeout: connectTimeout,
		}),
		grpc.WithDefaultServiceConfig(`{"loadBalancingPolicy":"round_robin"}`),
		grpc.WithUserAgent(c.cfg.App.Name),
	}

	creds, err := transportCreds(gc.UseTLS, gc.CACertPath, gc.ServerName)
	if err != nil {
		return nil, err
	}
	opts = append(opts, grpc.WithTransportCredentials(creds))

	var callOpts []grpc.CallOption
	if gc.MaxRecvBytes > 0 {
		callOpts = append(callOpts, grpc.MaxCallRecvMsgSize(gc.MaxRecvBytes))
	}
	if gc.MaxSendBytes > 0 {
		callOpts = append(callOpts, grpc.MaxCallSendMsgSize(gc.MaxSendBytes))
	}
	if len(callOpts) > 0 {
		opts = append(opts, grpc.WithDefaultCallOptions(callOpts...))
	}

	return grpc.NewClient(gc.Target, append(opts, extra...)...)
}

func transportCreds(useTLS bool, caPath, serverName string) (credentials.TransportCredentials, error) {
	if !useTLS {
		return insecure.NewCredentials(), nil
	}
	if caPath == "" {
		// system roots
		return credentials.NewClientTLSFromCert(nil, serverName), nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(pem); !ok {
		return nil, ErrBadCACert
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool, ServerName: serverName, MinVersion: tls.VersionTLS12}), nil
}
