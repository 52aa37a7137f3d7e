package payment

import (
	"context"

	"github.com/aq2208/gstore-api/internal/usecase"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

const (
	metaOrderID = "order_id"
	metaUserID  = "user_id"
)

// StripeGateway implements usecase.PaymentGateway with Stripe Checkout.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway uses the default Stripe backends when backends is nil.
func NewStripeGateway(secretKey string, backends *stripe.Backends) *StripeGateway {
	return &StripeGateway{api: client.New(secretKey, backends)}
}

func (g *StripeGateway) CreateSession(ctx context.Context, req usecase.SessionRequest) (*usecase.PaymentSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for _, li := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(req.Currency),
				UnitAmount: stripe.Int64(li.UnitAmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(li.Name),
				},
			},
			Quantity: stripe.Int64(int64(li.Quantity)),
		})
	}
	params.AddMetadata(metaOrderID, req.Metadata.OrderID)
	params.AddMetadata(metaUserID, req.Metadata.UserID)
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey())

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}
	return toSession(s), nil
}

func (g *StripeGateway) RetrieveSession(ctx context.Context, id string) (*usecase.PaymentSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := g.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, err
	}
	return toSession(s), nil
}

func toSession(s *stripe.CheckoutSession) *usecase.PaymentSession {
	return &usecase.PaymentSession{
		ID:               s.ID,
		URL:              s.URL,
		PaymentStatus:    string(s.PaymentStatus),
		AmountTotalCents: s.AmountTotal,
		Metadata: usecase.SessionMetadata{
			OrderID: s.Metadata[metaOrderID],
			UserID:  s.Metadata[metaUserID],
		},
	}
}

var _ usecase.PaymentGateway = (*StripeGateway)(nil)
