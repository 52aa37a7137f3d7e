package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aq2208/gstore-api/internal/usecase"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	methodCreateSession   = "/payment.v1.CheckoutService/CreateSession"
	methodRetrieveSession = "/payment.v1.CheckoutService/RetrieveSession"
)

// PaymentClient implements usecase.PaymentGateway against a checkout service
// that speaks google.protobuf.Struct on both directions.
type PaymentClient struct {
	conn    grpc.ClientConnInterface
	timeout time.Duration
}

func NewPaymentClient(conn grpc.ClientConnInterface, timeout time.Duration) *PaymentClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PaymentClient{conn: conn, timeout: timeout}
}

func (c *PaymentClient) CreateSession(ctx context.Context, req usecase.SessionRequest) (*usecase.PaymentSession, error) {
	items := make([]any, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		items = append(items, map[string]any{
			"name":        li.Name,
			"unit_amount": li.UnitAmountCents,
			"quantity":    li.Quantity,
		})
	}
	in, err := structpb.NewStruct(map[string]any{
		"line_items":     items,
		"currency":       req.Currency,
		"success_url":    req.SuccessURL,
		"cancel_url":     req.CancelURL,
		"customer_email": req.CustomerEmail,
		"metadata": map[string]any{
			"order_id": req.Metadata.OrderID,
			"user_id":  req.Metadata.UserID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode session request: %w", err)
	}
	return c.call(ctx, methodCreateSession, in, req.IdempotencyKey())
}

func (c *PaymentClient) RetrieveSession(ctx context.Context, id string) (*usecase.PaymentSession, error) {
	in, err := structpb.NewStruct(map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return c.call(ctx, methodRetrieveSession, in, "")
}

func (c *PaymentClient) call(ctx context.Context, method string, in *structpb.Struct, idemKey string) (*usecase.PaymentSession, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if idemKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "idempotency-key", idemKey)
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return nil, err
	}
	return decodeSession(out)
}

func decodeSession(s *structpb.Struct) (*usecase.PaymentSession, error) {
	f := s.GetFields()
	id := f["id"].GetStringValue()
	if id == "" {
		return nil, errors.New("payment session response without id")
	}
	md := f["metadata"].GetStructValue().GetFields()
	return &usecase.PaymentSession{
		ID:               id,
		URL:              f["url"].GetStringValue(),
		PaymentStatus:    f["payment_status"].GetStringValue(),
		AmountTotalCents: int64(f["amount_total"].GetNumberValue()),
		Metadata: usecase.SessionMetadata{
			OrderID: md["order_id"].GetStringValue(),
			UserID:  md["user_id"].GetStringValue(),
		},
	}, nil
}

var _ usecase.PaymentGateway = (*PaymentClient)(nil)
