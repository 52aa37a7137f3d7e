package grpc

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/aq2208/gstore-api/configs"
	"github.com/aq2208/gstore-api/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

// checkoutServer is an in-process payment service keyed by session id.
type checkoutServer struct {
	mu       sync.Mutex
	sessions map[string]*structpb.Struct
	idemKeys []string
}

type checkoutService interface{}

func (s *checkoutServer) create(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		s.idemKeys = append(s.idemKeys, md.Get("idempotency-key")...)
	}
	f := in.GetFields()
	var total float64
	for _, v := range f["line_items"].GetListValue().GetValues() {
		li := v.GetStructValue().GetFields()
		total += li["unit_amount"].GetNumberValue() * li["quantity"].GetNumberValue()
	}
	id := "cs_" + f["metadata"].GetStructValue().GetFields()["order_id"].GetStringValue()
	out, err := structpb.NewStruct(map[string]any{
		"id":             id,
		"url":            "https://pay.example/" + id,
		"payment_status": "unpaid",
		"amount_total":   total,
		"metadata":       f["metadata"].GetStructValue().AsMap(),
	})
	if err != nil {
		return nil, err
	}
	s.sessions[id] = out
	return out, nil
}

func (s *checkoutServer) retrieve(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, ok := s.sessions[in.GetFields()["id"].GetStringValue()]
	if !ok {
		return nil, status.Error(codes.NotFound, "no such session")
	}
	return out, nil
}

type unaryHandler = func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error)

func unary(fn func(*checkoutServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) unaryHandler {
	return func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		return fn(srv.(*checkoutServer), ctx, in)
	}
}

var checkoutDesc = grpc.ServiceDesc{
	ServiceName: "payment.v1.CheckoutService",
	HandlerType: (*checkoutService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateSession", Handler: unary((*checkoutServer).create)},
		{MethodName: "RetrieveSession", Handler: unary((*checkoutServer).retrieve)},
	},
}

func startServer(t *testing.T) (*PaymentClient, *checkoutServer) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	impl := &checkoutServer{sessions: map[string]*structpb.Struct{}}
	srv := grpc.NewServer()
	srv.RegisterService(&checkoutDesc, impl)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	var cfg configs.Config
	cfg.App.Name = "gstore-test"
	cfg.GrpcServer.Target = "passthrough:///bufnet"
	cfg.GrpcServer.Timeout = time.Second
	conn, err := NewGrpcClient(cfg).Dial(grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewPaymentClient(conn, time.Second), impl
}

func TestPaymentClientCreateAndRetrieve(t *testing.T) {
	c, srv := startServer(t)
	ctx := context.Background()

	req := usecase.SessionRequest{
		LineItems: []usecase.LineItem{
			{Name: "A", UnitAmountCents: 10000, Quantity: 2},
			{Name: "B", UnitAmountCents: 5000, Quantity: 1},
		},
		Currency:   "usd",
		SuccessURL: "https://shop.example/success",
		CancelURL:  "https://shop.example/cancel",
		Metadata:   usecase.SessionMetadata{OrderID: "o1", UserID: "u1"},
	}
	sess, err := c.CreateSession(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "cs_o1", sess.ID)
	assert.Equal(t, "https://pay.example/cs_o1", sess.URL)
	assert.Equal(t, int64(25000), sess.AmountTotalCents)
	assert.Equal(t, []string{req.IdempotencyKey()}, srv.idemKeys)

	req.LineItems[1].Quantity = 2
	_, err = c.CreateSession(ctx, req)
	require.NoError(t, err)
	require.Len(t, srv.idemKeys, 2)
	assert.NotEqual(t, srv.idemKeys[0], srv.idemKeys[1], "an edited cart must not replay the earlier session")

	got, err := c.RetrieveSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "unpaid", got.PaymentStatus)
	assert.Equal(t, usecase.SessionMetadata{OrderID: "o1", UserID: "u1"}, got.Metadata)
}

func TestPaymentClientUnknownSession(t *testing.T) {
	c, _ := startServer(t)
	_, err := c.RetrieveSession(context.Background(), "cs_missing")
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestDecodeSessionRequiresID(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{"url": "x"})
	require.NoError(t, err)
	_, err = decodeSession(s)
	assert.Error(t, err)
}

func TestTransportCredsBadCA(t *testing.T) {
	_, err := transportCreds(true, "testdata/missing.pem", "")
	assert.Error(t, err)

	creds, err := transportCreds(false, "", "")
	require.NoError(t, err)
	assert.Equal(t, "insecure", creds.Info().SecurityProtocol)
}
