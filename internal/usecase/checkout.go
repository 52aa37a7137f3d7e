package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/logging"
	"github.com/google/uuid"
)

const (
	viaGateway = "gateway"
	viaDirect  = "direct"

	scopePaymentSession = "payment-session"
)

type CheckoutConfig struct {
	AppURL   string
	Currency string
}

// Checkout moves an open order to COMPLETED, either after the payment gateway
// confirms a session or directly through PlaceOrder. Both paths share one
// guarded completion so an order is completed at most once.
type Checkout struct {
	store   Store
	gw      PaymentGateway
	idem    IdempotencyStore
	carts   CartCache
	catalog CatalogCache
	rec     Recorder
	cfg     CheckoutConfig
	now     func() time.Time
}

func NewCheckout(store Store, gw PaymentGateway, idem IdempotencyStore, carts CartCache, catalog CatalogCache, rec Recorder, cfg CheckoutConfig) *Checkout {
	if rec == nil {
		rec = nopRecorder{}
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	return &Checkout{store: store, gw: gw, idem: idem, carts: carts, catalog: catalog, rec: rec, cfg: cfg, now: time.Now}
}

type StartPaymentOutput struct {
	OrderID   string
	SessionID string
	URL       string
}

// StartPayment opens a hosted checkout session for the caller's cart and parks
// the order in AWAITING_PAYMENT.
func (c *Checkout) StartPayment(ctx context.Context, userID, address string) (StartPaymentOutput, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return StartPaymentOutput{}, fmt.Errorf("%w: shipping address is required", ErrInvalidInput)
	}
	u, err := c.store.Users().GetByID(ctx, userID)
	if err != nil {
		return StartPaymentOutput{}, err
	}
	o, err := c.openCart(ctx, userID)
	if err != nil {
		return StartPaymentOutput{}, err
	}

	req := SessionRequest{
		Currency:      c.cfg.Currency,
		SuccessURL:    c.cfg.AppURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     c.cfg.AppURL + "/checkout",
		CustomerEmail: u.Email,
		Metadata:      SessionMetadata{OrderID: o.ID, UserID: u.ID},
	}
	for _, it := range o.Items {
		req.LineItems = append(req.LineItems, LineItem{
			Name:            it.ProductName,
			UnitAmountCents: domain.Cents(it.Price),
			Quantity:        it.Quantity,
		})
	}
	sess, err := c.gw.CreateSession(ctx, req)
	if err != nil {
		c.rec.CheckoutOutcome(viaGateway, "gateway_error")
		return StartPaymentOutput{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	expected := o.Version
	o.Status = domain.StatusAwaitingPayment
	o.PaymentSessionID = sess.ID
	o.ShippingAddress = address
	ok, err := c.store.Orders().SaveCart(ctx, o, expected)
	if err != nil {
		return StartPaymentOutput{}, err
	}
	if !ok {
		return StartPaymentOutput{}, ErrConflict
	}
	c.dropCart(ctx, userID)

	logging.FromCtx(ctx).Info("payment session created", "order_id", o.ID, "session_id", sess.ID)
	c.rec.CheckoutOutcome(viaGateway, "session_created")
	return StartPaymentOutput{OrderID: o.ID, SessionID: sess.ID, URL: sess.URL}, nil
}

type ConfirmInput struct {
	SessionID string
	// UserID, when set, must own the order. Empty for gateway-originated calls.
	UserID string
}

type CompleteOutput struct {
	OrderID          string
	AlreadyCompleted bool
}

// ConfirmPayment completes the order referenced by a paid gateway session.
// Confirming the same session again is a successful no-op.
func (c *Checkout) ConfirmPayment(ctx context.Context, in ConfirmInput) (CompleteOutput, error) {
	if strings.TrimSpace(in.SessionID) == "" {
		return CompleteOutput{}, fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}

	if out, ok := c.recallSession(ctx, in); ok {
		return out, nil
	}

	sess, err := c.gw.RetrieveSession(ctx, in.SessionID)
	if err != nil {
		c.rec.CheckoutOutcome(viaGateway, "verification_failed")
		return CompleteOutput{}, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	if sess.PaymentStatus != PaymentStatusPaid {
		c.rec.CheckoutOutcome(viaGateway, "not_paid")
		return CompleteOutput{}, ErrPaymentNotConfirmed
	}
	if sess.Metadata.OrderID == "" {
		c.rec.CheckoutOutcome(viaGateway, "invalid_state")
		return CompleteOutput{}, fmt.Errorf("%w: session carries no order", ErrInvalidState)
	}

	o, err := c.store.Orders().GetByID(ctx, sess.Metadata.OrderID)
	if err != nil {
		return CompleteOutput{}, err
	}
	if in.UserID != "" && o.UserID != in.UserID {
		return CompleteOutput{}, ErrNotFound
	}
	if o.Status == domain.StatusCompleted {
		c.rememberSession(ctx, in.SessionID, o)
		return CompleteOutput{OrderID: o.ID, AlreadyCompleted: true}, nil
	}
	// A paid session is honoured for the order its metadata names, even when
	// a later session replaced it or the cart changed since.
	if o.PaymentSessionID != "" && o.PaymentSessionID != sess.ID {
		logging.FromCtx(ctx).Warn("paid session superseded on order",
			"order_id", o.ID, "session_id", sess.ID, "order_session_id", o.PaymentSessionID)
	}
	if sess.AmountTotalCents != domain.Cents(o.Total) {
		logging.FromCtx(ctx).Warn("paid amount differs from order total",
			"order_id", o.ID, "session_id", sess.ID, "paid_cents", sess.AmountTotalCents, "total_cents", domain.Cents(o.Total))
		c.rec.CheckoutOutcome(viaGateway, "amount_mismatch")
	}

	out, err := c.complete(ctx, o, sess.ID, "", viaGateway)
	if err != nil {
		return CompleteOutput{}, err
	}
	c.rememberSession(ctx, in.SessionID, o)
	return out, nil
}

type PlaceOrderInput struct {
	UserID         string
	Address        string
	IdempotencyKey string
}

// PlaceOrder completes the caller's cart without a gateway session. Every line
// is checked against current stock before the transaction starts.
func (c *Checkout) PlaceOrder(ctx context.Context, in PlaceOrderInput) (CompleteOutput, error) {
	address := strings.TrimSpace(in.Address)
	if address == "" {
		return CompleteOutput{}, fmt.Errorf("%w: shipping address is required", ErrInvalidInput)
	}

	if in.IdempotencyKey != "" && c.idem != nil {
		// Fast path: idempotency recall
		if id, ok, _ := c.idem.Recall(ctx, in.UserID, in.IdempotencyKey); ok {
			return CompleteOutput{OrderID: id, AlreadyCompleted: true}, nil
		}
		ok, err := c.idem.TryLock(ctx, in.UserID, in.IdempotencyKey)
		if err != nil {
			return CompleteOutput{}, err
		}
		if !ok {
			return CompleteOutput{}, ErrDuplicate
		}
	}

	out, err := c.placeOrder(ctx, in.UserID, address)
	if in.IdempotencyKey != "" && c.idem != nil {
		if err != nil {
			_ = c.idem.Release(ctx, in.UserID, in.IdempotencyKey)
		} else {
			_ = c.idem.Remember(ctx, in.UserID, in.IdempotencyKey, out.OrderID)
		}
	}
	return out, err
}

func (c *Checkout) placeOrder(ctx context.Context, userID, address string) (CompleteOutput, error) {
	o, err := c.openCart(ctx, userID)
	if err != nil {
		return CompleteOutput{}, err
	}
	if o.Status != domain.StatusPending {
		return CompleteOutput{}, fmt.Errorf("%w: a payment session is in progress", ErrInvalidState)
	}
	for _, it := range o.Items {
		p, err := c.store.Products().GetByID(ctx, it.ProductID)
		if err != nil {
			return CompleteOutput{}, err
		}
		if it.Quantity > p.Stock {
			c.rec.CheckoutOutcome(viaDirect, "insufficient_stock")
			return CompleteOutput{}, &StockError{ProductID: p.ID, ProductName: p.Name, Requested: it.Quantity, Available: p.Stock}
		}
	}
	return c.complete(ctx, o, "", address, viaDirect)
}

func (c *Checkout) openCart(ctx context.Context, userID string) (*domain.Order, error) {
	o, err := c.store.Orders().GetOpenByUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}
	if len(o.Items) == 0 {
		return nil, ErrEmptyCart
	}
	return o, nil
}

var errLostRace = errors.New("order changed during completion")

// complete decrements stock for every line and flips the order to COMPLETED in
// one transaction, together with the outbox event.
func (c *Checkout) complete(ctx context.Context, o *domain.Order, sessionID, address, via string) (CompleteOutput, error) {
	l := logging.FromCtx(ctx).With("order_id", o.ID, "via", via)

	now := c.now().UTC()
	msg := OrderCompletedMsg{
		EventID:     uuid.NewString(),
		OrderID:     o.ID,
		UserID:      o.UserID,
		Total:       o.Total.StringFixed(2),
		Via:         via,
		CompletedAt: now,
	}
	for _, it := range o.Items {
		msg.Items = append(msg.Items, CompletedLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return CompleteOutput{}, fmt.Errorf("marshal event: %w", err)
	}

	already := false
	err = c.store.InTx(ctx, func(r Repos) error {
		flipped, err := r.Orders().Complete(ctx, o.ID, o.Version, sessionID, address)
		if err != nil {
			return err
		}
		if !flipped {
			cur, err := r.Orders().GetByID(ctx, o.ID)
			if err != nil {
				return err
			}
			if cur.Status == domain.StatusCompleted {
				already = true
				return errLostRace
			}
			return ErrConflict
		}
		for _, it := range o.Items {
			ok, err := r.Products().DecrementStock(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				p, perr := r.Products().GetByID(ctx, it.ProductID)
				if perr != nil {
					return perr
				}
				return &StockError{ProductID: p.ID, ProductName: p.Name, Requested: it.Quantity, Available: p.Stock}
			}
		}
		return r.Outbox().Insert(ctx, TopicOrderCompleted, o.ID, payload)
	})

	switch {
	case already:
		l.Info("order already completed")
		c.rec.CheckoutOutcome(via, "already_completed")
		return CompleteOutput{OrderID: o.ID, AlreadyCompleted: true}, nil
	case errors.Is(err, ErrInsufficientStock):
		l.Warn("completion rejected", "err", err)
		c.rec.CheckoutOutcome(via, "insufficient_stock")
		return CompleteOutput{}, err
	case errors.Is(err, ErrConflict), errors.Is(err, ErrNotFound):
		c.rec.CheckoutOutcome(via, "conflict")
		return CompleteOutput{}, err
	case err != nil:
		l.Error("completion transaction failed", "err", err)
		c.rec.CheckoutOutcome(via, "transaction_failure")
		return CompleteOutput{}, &TxError{OrderID: o.ID, Err: err}
	}

	o.Status = domain.StatusCompleted
	l.Info("order completed", "total", msg.Total)
	c.rec.CheckoutOutcome(via, "completed")
	c.rec.OrderCompleted(via, o.Total)
	c.dropCart(ctx, o.UserID)
	if c.catalog != nil {
		if err := c.catalog.InvalidateHome(ctx); err != nil {
			l.Warn("home cache invalidate failed", "err", err)
		}
	}
	return CompleteOutput{OrderID: o.ID}, nil
}

func (c *Checkout) recallSession(ctx context.Context, in ConfirmInput) (CompleteOutput, bool) {
	if c.idem == nil {
		return CompleteOutput{}, false
	}
	v, ok, err := c.idem.Recall(ctx, scopePaymentSession, in.SessionID)
	if err != nil || !ok {
		return CompleteOutput{}, false
	}
	orderID, owner, _ := strings.Cut(v, "|")
	if in.UserID != "" && owner != in.UserID {
		return CompleteOutput{}, false
	}
	return CompleteOutput{OrderID: orderID, AlreadyCompleted: true}, true
}

func (c *Checkout) rememberSession(ctx context.Context, sessionID string, o *domain.Order) {
	if c.idem == nil {
		return
	}
	if err := c.idem.Remember(ctx, scopePaymentSession, sessionID, o.ID+"|"+o.UserID); err != nil {
		logging.FromCtx(ctx).Warn("remember payment session failed", "session_id", sessionID, "err", err)
	}
}

func (c *Checkout) dropCart(ctx context.Context, userID string) {
	if c.carts == nil {
		return
	}
	if err := c.carts.InvalidateCart(ctx, userID); err != nil {
		logging.FromCtx(ctx).Warn("cart cache invalidate failed", "user_id", userID, "err", err)
	}
}
