package usecase

import (
	"context"
	"errors"

	"github.com/aq2208/gstore-api/internal/logging"
)

// ErrRetryable marks a payment event that may be redelivered: the gateway
// could not be reached, so nothing was mutated.
var ErrRetryable = errors.New("retryable payment event")

// HandlePaymentEvent confirms the session named by a gateway event. Business
// outcomes are logged and swallowed; financial mutations are never retried.
func (c *Checkout) HandlePaymentEvent(ctx context.Context, ev PaymentEventMsg) error {
	l := logging.FromCtx(ctx).With("event_id", ev.ID, "event_type", ev.Type, "session_id", ev.SessionID)
	if ev.Type != PaymentEventSessionCompleted {
		l.Debug("payment event ignored")
		return nil
	}

	out, err := c.ConfirmPayment(ctx, ConfirmInput{SessionID: ev.SessionID})
	switch {
	case err == nil:
		l.Info("payment event applied", "order_id", out.OrderID, "already_completed", out.AlreadyCompleted)
		return nil
	case errors.Is(err, ErrVerificationFailed):
		l.Warn("payment event verification failed", "err", err)
		return errors.Join(ErrRetryable, err)
	case errors.Is(err, ErrTransactionFailure):
		l.Error("payment event needs support", "err", err)
		return nil
	default:
		l.Warn("payment event rejected", "err", err)
		return nil
	}
}
