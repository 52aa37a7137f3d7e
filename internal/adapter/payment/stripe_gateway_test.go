package payment

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/aq2208/gstore-api/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

type stripeStub struct {
	forms   []url.Values
	idemKey string
}

func (s *stripeStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/checkout/sessions":
		_ = r.ParseForm()
		s.forms = append(s.forms, r.PostForm)
		s.idemKey = r.Header.Get("Idempotency-Key")
		fmt.Fprint(w, `{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/cs_test_1",`+
			`"payment_status":"unpaid","amount_total":25000,"metadata":{"order_id":"o1","user_id":"u1"}}`)
	case r.Method == http.MethodGet && r.URL.Path == "/v1/checkout/sessions/cs_test_1":
		fmt.Fprint(w, `{"id":"cs_test_1","object":"checkout.session","payment_status":"paid","amount_total":25000,`+
			`"metadata":{"order_id":"o1","user_id":"u1"}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"No such checkout.session"}}`)
	}
}

func newStubGateway(t *testing.T) (*StripeGateway, *stripeStub) {
	t.Helper()
	stub := &stripeStub{}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		HTTPClient:        srv.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return NewStripeGateway("sk_test_123", &stripe.Backends{API: backend, Connect: backend, Uploads: backend}), stub
}

func sessionRequest() usecase.SessionRequest {
	return usecase.SessionRequest{
		LineItems: []usecase.LineItem{
			{Name: "A", UnitAmountCents: 10000, Quantity: 2},
			{Name: "B", UnitAmountCents: 5000, Quantity: 1},
		},
		Currency:      "usd",
		SuccessURL:    "https://shop.example/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     "https://shop.example/cart",
		CustomerEmail: "u1@example.com",
		Metadata:      usecase.SessionMetadata{OrderID: "o1", UserID: "u1"},
	}
}

func TestStripeCreateSession(t *testing.T) {
	g, stub := newStubGateway(t)

	sess, err := g.CreateSession(context.Background(), sessionRequest())
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_test_1", sess.URL)
	assert.Equal(t, "o1", sess.Metadata.OrderID)

	require.Len(t, stub.forms, 1)
	form := stub.forms[0]
	assert.Equal(t, "payment", form.Get("mode"))
	assert.Equal(t, "10000", form.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "2", form.Get("line_items[0][quantity]"))
	assert.Equal(t, "B", form.Get("line_items[1][price_data][product_data][name]"))
	assert.Equal(t, "o1", form.Get("metadata[order_id]"))
	assert.Equal(t, sessionRequest().IdempotencyKey(), stub.idemKey)
}

func TestStripeRetrieveSession(t *testing.T) {
	g, _ := newStubGateway(t)

	sess, err := g.RetrieveSession(context.Background(), "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, usecase.PaymentStatusPaid, sess.PaymentStatus)
	assert.Equal(t, int64(25000), sess.AmountTotalCents)

	_, err = g.RetrieveSession(context.Background(), "cs_missing")
	assert.Error(t, err)
}
