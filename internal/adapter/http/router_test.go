package http

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aq2208/gstore-api/internal/adapter/cache"
	"github.com/aq2208/gstore-api/internal/adapter/http/middleware"
	"github.com/aq2208/gstore-api/internal/adapter/repo/memstore"
	"github.com/aq2208/gstore-api/internal/security"
	"github.com/aq2208/gstore-api/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubGateway struct {
	mu       sync.Mutex
	sessions map[string]*usecase.PaymentSession
}

func (g *stubGateway) CreateSession(_ context.Context, req usecase.SessionRequest) (*usecase.PaymentSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var total int64
	for _, li := range req.LineItems {
		total += li.UnitAmountCents * int64(li.Quantity)
	}
	s := &usecase.PaymentSession{
		ID:               fmt.Sprintf("cs_test_%d", len(g.sessions)+1),
		PaymentStatus:    "unpaid",
		AmountTotalCents: total,
		Metadata:         req.Metadata,
	}
	s.URL = "https://pay.example/" + s.ID
	g.sessions[s.ID] = s
	return s, nil
}

func (g *stubGateway) RetrieveSession(_ context.Context, id string) (*usecase.PaymentSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[id]
	if !ok {
		return nil, errors.New("no such session")
	}
	cp := *s
	return &cp, nil
}

func (g *stubGateway) markPaid(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[id].PaymentStatus = usecase.PaymentStatusPaid
}

type api struct {
	t      *testing.T
	engine *gin.Engine
	gw     *stubGateway
	signer security.Signer
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := memstore.New()
	rc := cache.NewRedisCache(rdb, time.Minute, time.Minute)
	idem := cache.NewRedisIdempotencyStore(rdb, time.Hour)
	tokens := security.NewJWT("test-secret", "gstore-api", "gstore", time.Hour)
	gw := &stubGateway{sessions: map[string]*usecase.PaymentSession{}}
	checkout := usecase.NewCheckout(store, gw, idem, rc, rc, nil, usecase.CheckoutConfig{AppURL: "https://shop.example", Currency: "usd"})

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	signer, err := security.NewRSASigner(nil, key)
	require.NoError(t, err)

	h := Handlers{
		Accounts: NewAccountHandler(usecase.NewAccounts(store, security.NewBcryptHasher(bcrypt.MinCost), tokens)),
		Catalog:  NewCatalogHandler(usecase.NewCatalog(store, rc)),
		Cart:     NewCartHandler(usecase.NewCart(store, rc, rc)),
		Orders:   NewOrderHandler(checkout, usecase.NewOrders(store)),
		Webhook:  NewWebhookHandler(checkout),
	}
	engine := NewRouter(h, middleware.NewAuthz(tokens), RouterOptions{RequestTimeout: 5 * time.Second, WebhookVerifier: signer})
	return &api{t: t, engine: engine, gw: gw, signer: signer}
}

func (a *api) do(method, path, token string, body any, hdr ...string) (*httptest.ResponseRecorder, map[string]any) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		raw, ok := body.([]byte)
		if !ok {
			var err error
			raw, err = json.Marshal(body)
			require.NoError(a.t, err)
		}
		buf.Write(raw)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

// signup registers a user and returns a bearer token.
func (a *api) signup(email, role string) string {
	a.t.Helper()
	w, _ := a.do(http.MethodPost, "/v1/auth/register", "", gin.H{"name": email, "email": email, "password": "secret1", "role": role})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	w, out := a.do(http.MethodPost, "/v1/auth/token", "", gin.H{"email": email, "password": "secret1"})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(a.t, "Bearer", out["token_type"])
	return out["access_token"].(string)
}

func (a *api) product(sellerTok, name, price string, stock int) string {
	a.t.Helper()
	w, out := a.do(http.MethodPost, "/v1/seller/products", sellerTok, gin.H{
		"name": name, "description": name + " description", "price": price, "stock": stock,
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return out["id"].(string)
}

func TestHealthAndMetrics(t *testing.T) {
	a := newAPI(t)
	w, out := a.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["ok"])

	w, _ = a.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gstore_http_requests_total")
}

func TestAuthzBoundary(t *testing.T) {
	a := newAPI(t)
	customer := a.signup("cust@example.com", "")

	w, out := a.do(http.MethodGet, "/v1/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_request", out["error"])

	w, _ = a.do(http.MethodGet, "/v1/cart", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = a.do(http.MethodGet, "/v1/seller/products", customer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = a.do(http.MethodGet, "/v1/admin/users", customer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = a.do(http.MethodGet, "/v1/cart", customer, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterAndLoginErrors(t *testing.T) {
	a := newAPI(t)
	a.signup("dup@example.com", "")

	w, out := a.do(http.MethodPost, "/v1/auth/register", "", gin.H{"name": "x", "email": "dup@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email_taken", out["error"])

	w, out = a.do(http.MethodPost, "/v1/auth/token", "", gin.H{"email": "dup@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", out["error"])

	w, _ = a.do(http.MethodPost, "/v1/auth/register", "", []byte("{"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDirectPlaceOrderFlow(t *testing.T) {
	a := newAPI(t)
	seller := a.signup("seller@example.com", "seller")
	customer := a.signup("cust@example.com", "")
	pa := a.product(seller, "Product A", "100.00", 5)
	pb := a.product(seller, "Product B", "50.00", 1)

	w, cart := a.do(http.MethodPost, "/v1/cart/items", customer, gin.H{"productId": pa, "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "200", cart["total"])
	w, cart = a.do(http.MethodPost, "/v1/cart/items", customer, gin.H{"productId": pb})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "250", cart["total"])

	w, out := a.do(http.MethodPost, "/v1/orders", customer, gin.H{"shippingAddress": "1 Main St"}, "X-Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	orderID := out["orderId"].(string)
	assert.Equal(t, false, out["alreadyCompleted"])

	w, out = a.do(http.MethodPost, "/v1/orders", customer, gin.H{"shippingAddress": "1 Main St"}, "X-Idempotency-Key", "k-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, orderID, out["orderId"])
	assert.Equal(t, true, out["alreadyCompleted"])

	w, out = a.do(http.MethodGet, "/v1/orders/"+orderID, customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "COMPLETED", out["status"])
	assert.Equal(t, "1 Main St", out["shippingAddress"])

	w, out = a.do(http.MethodGet, "/v1/products/"+pb, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, out["stock"])

	// another customer cannot see the order
	other := a.signup("other@example.com", "")
	w, out = a.do(http.MethodGet, "/v1/orders/"+orderID, other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", out["error"])

	w, out = a.do(http.MethodGet, "/v1/seller/dashboard", seller, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, out["unitsSold"])
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	a := newAPI(t)
	seller := a.signup("seller@example.com", "SELLER")
	customer := a.signup("cust@example.com", "")
	pb := a.product(seller, "Product B", "50.00", 1)

	w, _ := a.do(http.MethodPost, "/v1/cart/items", customer, gin.H{"productId": pb, "quantity": 3})
	require.Equal(t, http.StatusOK, w.Code)

	w, out := a.do(http.MethodPost, "/v1/orders", customer, gin.H{"shippingAddress": "1 Main St"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "insufficient_stock", out["error"])
	assert.Equal(t, pb, out["productId"])
	assert.Equal(t, "Product B", out["product"])
	assert.EqualValues(t, 1, out["available"])

	w, out = a.do(http.MethodPost, "/v1/orders", customer, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", out["error"])
}

func (a *api) signed(body []byte) string {
	sig, err := a.signer.Sign(body)
	require.NoError(a.t, err)
	return base64.StdEncoding.EncodeToString(sig)
}

func TestGatewayCheckoutViaWebhook(t *testing.T) {
	a := newAPI(t)
	seller := a.signup("seller@example.com", "seller")
	customer := a.signup("cust@example.com", "")
	pa := a.product(seller, "Product A", "100.00", 5)

	w, _ := a.do(http.MethodPost, "/v1/cart/items", customer, gin.H{"productId": pa, "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code)

	w, out := a.do(http.MethodPost, "/v1/checkout/session", customer, gin.H{"shippingAddress": "1 Main St"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sessionID := out["sessionId"].(string)
	orderID := out["orderId"].(string)
	assert.Equal(t, "https://pay.example/"+sessionID, out["url"])

	// unpaid sessions cannot be confirmed
	w, out = a.do(http.MethodPost, "/v1/checkout/confirm", customer, gin.H{"sessionId": sessionID})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "payment_not_confirmed", out["error"])

	a.gw.markPaid(sessionID)
	event, err := json.Marshal(usecase.PaymentEventMsg{ID: "evt_1", Type: usecase.PaymentEventSessionCompleted, SessionID: sessionID})
	require.NoError(t, err)

	w, _ = a.do(http.MethodPost, "/v1/payments/webhook", "", event, middleware.SignatureHeader, base64.StdEncoding.EncodeToString([]byte("forged")))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, out = a.do(http.MethodPost, "/v1/payments/webhook", "", event, middleware.SignatureHeader, a.signed(event))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, out["received"])

	// the browser redirect arrives after the webhook
	w, out = a.do(http.MethodPost, "/v1/checkout/confirm?session_id="+sessionID, customer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, orderID, out["orderId"])
	assert.Equal(t, true, out["alreadyCompleted"])

	w, out = a.do(http.MethodGet, "/v1/products/"+pa, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, out["stock"])
}

func TestWebhookUnknownSessionAsksForRedelivery(t *testing.T) {
	a := newAPI(t)
	event := []byte(`{"id":"evt_9","type":"checkout.session.completed","sessionId":"cs_missing"}`)

	w, out := a.do(http.MethodPost, "/v1/payments/webhook", "", event, middleware.SignatureHeader, a.signed(event))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "retry_later", out["error"])
}

func TestCartItemValidation(t *testing.T) {
	a := newAPI(t)
	customer := a.signup("cust@example.com", "")

	w, out := a.do(http.MethodPatch, "/v1/cart/items/nope", customer, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", out["error"])

	w, _ = a.do(http.MethodDelete, "/v1/cart/items/nope", customer, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = a.do(http.MethodPost, "/v1/cart/items", customer, gin.H{"productId": "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
