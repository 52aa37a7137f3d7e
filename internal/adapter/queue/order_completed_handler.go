package queue

import (
	"context"

	"github.com/aq2208/gstore-api/internal/adapter/observ"
	"github.com/aq2208/gstore-api/internal/logging"
	"github.com/aq2208/gstore-api/internal/usecase"
)

// OrderCompletedHandler reacts to committed orders: stock changed, so the
// cached home listing is stale.
type OrderCompletedHandler struct {
	catalog usecase.CatalogCache
}

func NewOrderCompletedHandler(catalog usecase.CatalogCache) *OrderCompletedHandler {
	return &OrderCompletedHandler{catalog: catalog}
}

// HandleCompleted is meant for JSONHandler[usecase.OrderCompletedMsg].
func (h *OrderCompletedHandler) HandleCompleted(ctx context.Context, msg usecase.OrderCompletedMsg) error {
	err := h.catalog.InvalidateHome(ctx)
	observ.EventConsumed("rabbitmq", err)
	l := logging.FromCtx(ctx).With("order_id", msg.OrderID, "event_id", msg.EventID, "via", msg.Via)
	if err != nil {
		l.Warn("order completed: invalidate home failed", "err", err)
		return err
	}
	l.Info("order completed", "user_id", msg.UserID, "total", msg.Total, "lines", len(msg.Items))
	return nil
}

// Handler wraps h for the router.
func (h *OrderCompletedHandler) Handler() Handler {
	return JSONHandler[usecase.OrderCompletedMsg]{HandleFunc: h.HandleCompleted}
}
