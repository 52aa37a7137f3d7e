package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aq2208/gstore-api/internal/adapter/repo/memstore"
	domain "github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/usecase"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu          sync.Mutex
	n           int
	sessions    map[string]*usecase.PaymentSession
	requests    []usecase.SessionRequest
	createErr   error
	retrieveErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: map[string]*usecase.PaymentSession{}}
}

func (g *fakeGateway) CreateSession(_ context.Context, req usecase.SessionRequest) (*usecase.PaymentSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.n++
	id := fmt.Sprintf("cs_test_%d", g.n)
	var amount int64
	for _, li := range req.LineItems {
		amount += li.UnitAmountCents * int64(li.Quantity)
	}
	s := &usecase.PaymentSession{
		ID:               id,
		URL:              "https://pay.example/" + id,
		PaymentStatus:    "unpaid",
		AmountTotalCents: amount,
		Metadata:         req.Metadata,
	}
	g.sessions[id] = s
	g.requests = append(g.requests, req)
	cp := *s
	return &cp, nil
}

func (g *fakeGateway) RetrieveSession(_ context.Context, id string) (*usecase.PaymentSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	s, ok := g.sessions[id]
	if !ok {
		return nil, errors.New("no such checkout session")
	}
	cp := *s
	return &cp, nil
}

func (g *fakeGateway) markPaid(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[id].PaymentStatus = usecase.PaymentStatusPaid
}

type memIdem struct {
	mu     sync.Mutex
	locks  map[string]bool
	values map[string]string
}

func newMemIdem() *memIdem {
	return &memIdem{locks: map[string]bool{}, values: map[string]string{}}
}

func (m *memIdem) TryLock(_ context.Context, scope, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[scope+":"+key] {
		return false, nil
	}
	m.locks[scope+":"+key] = true
	return true, nil
}

func (m *memIdem) Release(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, scope+":"+key)
	return nil
}

func (m *memIdem) Remember(_ context.Context, scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[scope+":"+key] = value
	return nil
}

func (m *memIdem) Recall(_ context.Context, scope, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[scope+":"+key]
	return v, ok, nil
}

type memCache struct {
	mu              sync.Mutex
	carts           map[string]*usecase.CartView
	home            *usecase.HomeView
	homeInvalidated int
	cartInvalidated int
}

func newMemCache() *memCache {
	return &memCache{carts: map[string]*usecase.CartView{}}
}

func (c *memCache) GetCart(_ context.Context, userID string) (*usecase.CartView, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.carts[userID]
	return v, ok, nil
}

func (c *memCache) SetCart(_ context.Context, userID string, v *usecase.CartView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.carts[userID] = v
	return nil
}

func (c *memCache) InvalidateCart(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.carts, userID)
	c.cartInvalidated++
	return nil
}

func (c *memCache) GetHome(context.Context) (*usecase.HomeView, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.home, c.home != nil, nil
}

func (c *memCache) SetHome(_ context.Context, v *usecase.HomeView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.home = v
	return nil
}

func (c *memCache) InvalidateHome(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.home = nil
	c.homeInvalidated++
	return nil
}

type plainHasher struct{}

func (plainHasher) Hash(pw string) (string, error) { return "hashed:" + pw, nil }

func (plainHasher) Compare(hash, pw string) error {
	if hash != "hashed:"+pw {
		return usecase.ErrInvalidCredentials
	}
	return nil
}

type fakeTokens struct{}

func (fakeTokens) Issue(u *domain.User) (usecase.Token, error) {
	return usecase.Token{AccessToken: "tok-" + u.ID, ExpiresIn: time.Hour}, nil
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
	done     int
}

func (r *countingRecorder) CheckoutOutcome(path, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[path+"/"+outcome]++
}

func (r *countingRecorder) OrderCompleted(string, decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done++
}

type fixture struct {
	ctx      context.Context
	store    *memstore.Store
	gw       *fakeGateway
	idem     *memIdem
	cache    *memCache
	rec      *countingRecorder
	cart     *usecase.Cart
	checkout *usecase.Checkout
	catalog  *usecase.Catalog
	orders   *usecase.Orders
	accounts *usecase.Accounts
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		store: memstore.New(),
		gw:    newFakeGateway(),
		idem:  newMemIdem(),
		cache: newMemCache(),
		rec:   &countingRecorder{},
	}
	f.cart = usecase.NewCart(f.store, f.cache, f.cache)
	f.checkout = usecase.NewCheckout(f.store, f.gw, f.idem, f.cache, f.cache, f.rec, usecase.CheckoutConfig{
		AppURL:   "https://shop.example/",
		Currency: "usd",
	})
	f.catalog = usecase.NewCatalog(f.store, f.cache)
	f.orders = usecase.NewOrders(f.store)
	f.accounts = usecase.NewAccounts(f.store, plainHasher{}, fakeTokens{})
	return f
}

func (f *fixture) user(t *testing.T, id string, role domain.Role) {
	t.Helper()
	require.NoError(t, f.store.Users().Create(f.ctx, &domain.User{
		ID:           id,
		Name:         id,
		Email:        id + "@example.com",
		PasswordHash: "hashed:secret1",
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}))
}

// product seeds a product owned by "seller", creating the seller on first use.
func (f *fixture) product(t *testing.T, id, name, price string, stock int) {
	t.Helper()
	if _, err := f.store.Users().GetByID(f.ctx, "seller"); err != nil {
		f.user(t, "seller", domain.RoleSeller)
	}
	require.NoError(t, f.store.Products().Create(f.ctx, &domain.Product{
		ID:          id,
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		SellerID:    "seller",
		CreatedAt:   time.Now().UTC(),
	}))
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.store.Products().GetByID(f.ctx, id)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) setStock(t *testing.T, id string, stock int) {
	t.Helper()
	p, err := f.store.Products().GetByID(f.ctx, id)
	require.NoError(t, err)
	p.Stock = stock
	require.NoError(t, f.store.Products().Update(f.ctx, p))
}

func (f *fixture) openOrder(t *testing.T, userID string) *domain.Order {
	t.Helper()
	o, err := f.store.Orders().GetOpenByUser(f.ctx, userID)
	require.NoError(t, err)
	return o
}

func (f *fixture) pendingEvents(t *testing.T) []usecase.OutboxRecord {
	t.Helper()
	recs, err := f.store.Outbox().FetchPending(f.ctx, 0)
	require.NoError(t, err)
	return recs
}

// scenarioCart builds the two-line cart: A (100, stock 5) x2 and B (50, stock 1) x1.
func (f *fixture) scenarioCart(t *testing.T, userID string) {
	t.Helper()
	f.user(t, userID, domain.RoleCustomer)
	f.product(t, "A", "Product A", "100", 5)
	f.product(t, "B", "Product B", "50", 1)
	_, err := f.cart.Add(f.ctx, userID, "A", 2)
	require.NoError(t, err)
	_, err = f.cart.Add(f.ctx, userID, "B", 1)
	require.NoError(t, err)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
