package kafka

import (
	"context"

	"github.com/aq2208/gstore-api/internal/logging"
	"github.com/aq2208/gstore-api/internal/usecase"
)

// PaymentEventApplier is satisfied by *usecase.Checkout.
type PaymentEventApplier interface {
	HandlePaymentEvent(ctx context.Context, ev usecase.PaymentEventMsg) error
}

// NewPaymentEventHandler drops events without a session id before they reach
// checkout; everything else is delegated.
func NewPaymentEventHandler(a PaymentEventApplier) HandlerFunc {
	return func(ctx context.Context, ev usecase.PaymentEventMsg) error {
		if ev.SessionID == "" {
			logging.FromCtx(ctx).Warn("payment event without session id", "event_id", ev.ID)
			return nil
		}
		return a.HandlePaymentEvent(ctx, ev)
	}
}
