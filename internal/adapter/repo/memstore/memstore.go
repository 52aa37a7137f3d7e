// Package memstore is an in-memory usecase.Store with the same constraint
// behaviour as the MySQL schema. Transactions are serialised and roll back by
// discarding a working copy.
//
// It is a test double for use case and router tests. Nothing is persisted, so
// it must not be wired into bootstrap; production uses repo.MySQLStore.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	domain "github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/usecase"
	"github.com/google/uuid"
)

type item struct {
	domain.OrderItem
	seq int64
}

type data struct {
	users      map[string]domain.User
	categories []domain.Category
	products   map[string]domain.Product
	orders     map[string]domain.Order // items live in items
	items      map[string]item
	outbox     []usecase.OutboxRecord
	sent       map[int64]bool
	seq        int64
}

func newData() *data {
	return &data{
		users:    map[string]domain.User{},
		products: map[string]domain.Product{},
		orders:   map[string]domain.Order{},
		items:    map[string]item{},
		sent:     map[int64]bool{},
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.users {
		c.users[k] = v
	}
	c.categories = append(c.categories, d.categories...)
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.orders {
		c.orders[k] = v
	}
	for k, v := range d.items {
		c.items[k] = v
	}
	c.outbox = append(c.outbox, d.outbox...)
	for k, v := range d.sent {
		c.sent[k] = v
	}
	c.seq = d.seq
	return c
}

func (d *data) next() int64 {
	d.seq++
	return d.seq
}

type Store struct {
	mu     sync.Mutex
	d      *data
	faults map[string]error
	now    func() time.Time
}

func New() *Store {
	return &Store{d: newData(), faults: map[string]error{}, now: time.Now}
}

// FailOn makes the named operation (e.g. "outbox.insert") return err until
// cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

func (s *Store) AddCategory(c domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.categories = append(s.d.categories, c)
}

func (s *Store) InTx(ctx context.Context, fn func(r usecase.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.d.clone()
	if err := fn(repos{s: s, d: work}); err != nil {
		return err
	}
	s.d = work
	return nil
}

func (s *Store) Users() usecase.UserRepo          { return userRepo{repos{s: s}} }
func (s *Store) Products() usecase.ProductRepo    { return productRepo{repos{s: s}} }
func (s *Store) Categories() usecase.CategoryRepo { return categoryRepo{repos{s: s}} }
func (s *Store) Orders() usecase.OrderRepo        { return orderRepo{repos{s: s}} }
func (s *Store) Outbox() usecase.OutboxRepo       { return outboxRepo{repos{s: s}} }

// repos with d == nil locks the committed state for each call; inside InTx d
// is the transaction's working copy and the store lock is already held.
type repos struct {
	s *Store
	d *data
}

func (r repos) Users() usecase.UserRepo          { return userRepo{r} }
func (r repos) Products() usecase.ProductRepo    { return productRepo{r} }
func (r repos) Categories() usecase.CategoryRepo { return categoryRepo{r} }
func (r repos) Orders() usecase.OrderRepo        { return orderRepo{r} }
func (r repos) Outbox() usecase.OutboxRepo       { return outboxRepo{r} }

func (r repos) acquire(op string) (*data, func(), error) {
	release := func() {}
	d := r.d
	if d == nil {
		r.s.mu.Lock()
		d = r.s.d
		release = r.s.mu.Unlock
	}
	if err := r.s.faults[op]; err != nil {
		release()
		return nil, nil, err
	}
	return d, release, nil
}

type userRepo struct{ repos }

func (r userRepo) Create(_ context.Context, u *domain.User) error {
	d, done, err := r.acquire("users.create")
	if err != nil {
		return err
	}
	defer done()
	for _, x := range d.users {
		if x.Email == u.Email {
			return usecase.ErrEmailTaken
		}
	}
	d.users[u.ID] = *u
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	d, done, err := r.acquire("users.get")
	if err != nil {
		return nil, err
	}
	defer done()
	u, ok := d.users[id]
	if !ok {
		return nil, usecase.ErrNotFound
	}
	return &u, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	d, done, err := r.acquire("users.get")
	if err != nil {
		return nil, err
	}
	defer done()
	for _, u := range d.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, usecase.ErrNotFound
}

func (r userRepo) Update(_ context.Context, u *domain.User) error {
	d, done, err := r.acquire("users.update")
	if err != nil {
		return err
	}
	defer done()
	cur, ok := d.users[u.ID]
	if !ok {
		return usecase.ErrNotFound
	}
	cur.Name, cur.PasswordHash, cur.Role = u.Name, u.PasswordHash, u.Role
	d.users[u.ID] = cur
	return nil
}

// Delete mirrors the schema: the user's orders and items go, their products
// cascade unless another order line still references them.
func (r userRepo) Delete(_ context.Context, id string) error {
	d, done, err := r.acquire("users.delete")
	if err != nil {
		return err
	}
	defer done()
	if _, ok := d.users[id]; !ok {
		return usecase.ErrNotFound
	}
	for oid, o := range d.orders {
		if o.UserID != id {
			continue
		}
		for iid, it := range d.items {
			if it.OrderID == oid {
				delete(d.items, iid)
			}
		}
		delete(d.orders, oid)
	}
	for pid, p := range d.products {
		if p.SellerID != id {
			continue
		}
		if referenced(d, pid) {
			return usecase.ErrInvalidState
		}
		delete(d.products, pid)
	}
	delete(d.users, id)
	return nil
}

func (r userRepo) List(_ context.Context) ([]domain.User, error) {
	d, done, err := r.acquire("users.list")
	if err != nil {
		return nil, err
	}
	defer done()
	out := make([]domain.User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func referenced(d *data, productID string) bool {
	for _, it := range d.items {
		if it.ProductID == productID {
			return true
		}
	}
	return false
}

type categoryRepo struct{ repos }

func (r categoryRepo) List(_ context.Context) ([]domain.Category, error) {
	d, done, err := r.acquire("categories.list")
	if err != nil {
		return nil, err
	}
	defer done()
	out := append([]domain.Category(nil), d.categories...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func hasCategory(d *data, id string) bool {
	for _, c := range d.categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

type productRepo struct{ repos }

func (r productRepo) Create(_ context.Context, p *domain.Product) error {
	d, done, err := r.acquire("products.create")
	if err != nil {
		return err
	}
	defer done()
	if _, ok := d.users[p.SellerID]; !ok {
		return usecase.ErrInvalidInput
	}
	if p.CategoryID != "" && !hasCategory(d, p.CategoryID) {
		return usecase.ErrInvalidInput
	}
	d.products[p.ID] = *p
	return nil
}

func (r productRepo) Update(_ context.Context, p *domain.Product) error {
	d, done, err := r.acquire("products.update")
	if err != nil {
		return err
	}
	defer done()
	cur, ok := d.products[p.ID]
	if !ok {
		return nil
	}
	if p.CategoryID != "" && !hasCategory(d, p.CategoryID) {
		return usecase.ErrInvalidInput
	}
	cur.Name, cur.Description, cur.Price, cur.Stock = p.Name, p.Description, p.Price, p.Stock
	cur.ImageURL, cur.CategoryID = p.ImageURL, p.CategoryID
	d.products[p.ID] = cur
	return nil
}

func (r productRepo) Delete(_ context.Context, id string) error {
	d, done, err := r.acquire("products.delete")
	if err != nil {
		return err
	}
	defer done()
	if _, ok := d.products[id]; !ok {
		return usecase.ErrNotFound
	}
	if referenced(d, id) {
		return usecase.ErrInvalidState
	}
	delete(d.products, id)
	return nil
}

func (r productRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	d, done, err := r.acquire("products.get")
	if err != nil {
		return nil, err
	}
	defer done()
	p, ok := d.products[id]
	if !ok {
		return nil, usecase.ErrNotFound
	}
	return &p, nil
}

func (r productRepo) List(_ context.Context, f usecase.ProductFilter) ([]domain.Product, error) {
	d, done, err := r.acquire("products.list")
	if err != nil {
		return nil, err
	}
	defer done()
	search := strings.ToLower(f.Search)
	var out []domain.Product
	for _, p := range d.products {
		switch {
		case f.SellerID != "" && p.SellerID != f.SellerID,
			f.CategoryID != "" && p.CategoryID != f.CategoryID,
			search != "" && !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(strings.ToLower(p.Description), search),
			f.Stock == usecase.StockIn && p.Stock <= 0,
			f.Stock == usecase.StockOut && p.Stock > 0,
			f.MinPrice != nil && p.Price.LessThan(*f.MinPrice),
			f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice):
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch f.Sort {
		case usecase.SortPriceAsc:
			if !a.Price.Equal(b.Price) {
				return a.Price.LessThan(b.Price)
			}
		case usecase.SortPriceDesc:
			if !a.Price.Equal(b.Price) {
				return a.Price.GreaterThan(b.Price)
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	if f.Limit > 0 && uint64(len(out)) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r productRepo) CountBySeller(_ context.Context, sellerID string) (int, error) {
	d, done, err := r.acquire("products.count")
	if err != nil {
		return 0, err
	}
	defer done()
	n := 0
	for _, p := range d.products {
		if p.SellerID == sellerID {
			n++
		}
	}
	return n, nil
}

func (r productRepo) DecrementStock(_ context.Context, id string, qty int) (bool, error) {
	d, done, err := r.acquire("products.decrement")
	if err != nil {
		return false, err
	}
	defer done()
	p, ok := d.products[id]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	d.products[id] = p
	return true, nil
}

type orderRepo struct{ repos }

func (r orderRepo) Create(_ context.Context, o *domain.Order) error {
	d, done, err := r.acquire("orders.create")
	if err != nil {
		return err
	}
	defer done()
	if _, ok := d.users[o.UserID]; !ok {
		return usecase.ErrInvalidInput
	}
	if o.Status.Open() {
		for _, x := range d.orders {
			if x.UserID == o.UserID && x.Status.Open() {
				return usecase.ErrConflict
			}
		}
	}
	cp := *o
	cp.Items = nil
	d.orders[o.ID] = cp
	return nil
}

func (d *data) withItems(o domain.Order) *domain.Order {
	var its []item
	for _, it := range d.items {
		if it.OrderID == o.ID {
			its = append(its, it)
		}
	}
	sort.Slice(its, func(i, j int) bool { return its[i].seq < its[j].seq })
	o.Items = nil
	for _, it := range its {
		line := it.OrderItem
		if p, ok := d.products[line.ProductID]; ok {
			line.ProductName = p.Name
		}
		o.Items = append(o.Items, line)
	}
	return &o
}

func (r orderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	d, done, err := r.acquire("orders.get")
	if err != nil {
		return nil, err
	}
	defer done()
	o, ok := d.orders[id]
	if !ok {
		return nil, usecase.ErrNotFound
	}
	return d.withItems(o), nil
}

func (r orderRepo) GetOpenByUser(_ context.Context, userID string) (*domain.Order, error) {
	d, done, err := r.acquire("orders.get")
	if err != nil {
		return nil, err
	}
	defer done()
	for _, o := range d.orders {
		if o.UserID == userID && o.Status.Open() {
			return d.withItems(o), nil
		}
	}
	return nil, usecase.ErrNotFound
}

func (r orderRepo) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	d, done, err := r.acquire("orders.list")
	if err != nil {
		return nil, err
	}
	defer done()
	var out []domain.Order
	for _, o := range d.orders {
		if o.UserID == userID {
			out = append(out, *d.withItems(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r orderRepo) AddItem(_ context.Context, it *domain.OrderItem) error {
	d, done, err := r.acquire("orders.add_item")
	if err != nil {
		return err
	}
	defer done()
	if _, ok := d.orders[it.OrderID]; !ok {
		return usecase.ErrInvalidInput
	}
	if _, ok := d.products[it.ProductID]; !ok {
		return usecase.ErrInvalidInput
	}
	if it.Quantity < 1 {
		return usecase.ErrInvalidInput
	}
	for _, x := range d.items {
		if x.OrderID == it.OrderID && x.ProductID == it.ProductID {
			return usecase.ErrConflict
		}
	}
	d.items[it.ID] = item{OrderItem: *it, seq: d.next()}
	return nil
}

func (r orderRepo) UpdateItemQuantity(_ context.Context, itemID string, qty int) error {
	d, done, err := r.acquire("orders.update_item")
	if err != nil {
		return err
	}
	defer done()
	it, ok := d.items[itemID]
	if !ok {
		return usecase.ErrNotFound
	}
	if qty < 1 {
		return usecase.ErrInvalidInput
	}
	it.Quantity = qty
	d.items[itemID] = it
	return nil
}

func (r orderRepo) DeleteItem(_ context.Context, itemID string) error {
	d, done, err := r.acquire("orders.delete_item")
	if err != nil {
		return err
	}
	defer done()
	if _, ok := d.items[itemID]; !ok {
		return usecase.ErrNotFound
	}
	delete(d.items, itemID)
	return nil
}

func (r orderRepo) SaveCart(_ context.Context, o *domain.Order, expectedVersion int64) (bool, error) {
	d, done, err := r.acquire("orders.save_cart")
	if err != nil {
		return false, err
	}
	defer done()
	cur, ok := d.orders[o.ID]
	if !ok || cur.Version != expectedVersion || !cur.Status.Open() {
		return false, nil
	}
	cur.Total, cur.Status = o.Total, o.Status
	cur.ShippingAddress, cur.PaymentSessionID = o.ShippingAddress, o.PaymentSessionID
	cur.Version++
	cur.UpdatedAt = r.s.now().UTC()
	d.orders[o.ID] = cur
	return true, nil
}

func (r orderRepo) Complete(_ context.Context, id string, expectedVersion int64, sessionID, address string) (bool, error) {
	d, done, err := r.acquire("orders.complete")
	if err != nil {
		return false, err
	}
	defer done()
	cur, ok := d.orders[id]
	if !ok || cur.Version != expectedVersion || !cur.Status.Open() {
		return false, nil
	}
	cur.Status = domain.StatusCompleted
	if sessionID != "" {
		cur.PaymentSessionID = sessionID
	}
	if address != "" {
		cur.ShippingAddress = address
	}
	cur.Version++
	cur.UpdatedAt = r.s.now().UTC()
	d.orders[id] = cur
	return true, nil
}

func (r orderRepo) SalesBySeller(_ context.Context, sellerID string, limit int) ([]usecase.SaleLine, error) {
	d, done, err := r.acquire("orders.sales")
	if err != nil {
		return nil, err
	}
	defer done()
	var out []usecase.SaleLine
	for _, it := range d.items {
		p, ok := d.products[it.ProductID]
		if !ok || p.SellerID != sellerID {
			continue
		}
		o := d.orders[it.OrderID]
		if o.Status != domain.StatusCompleted {
			continue
		}
		out = append(out, usecase.SaleLine{
			OrderID:     o.ID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			Price:       it.Price,
			SoldAt:      o.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SoldAt.After(out[j].SoldAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type outboxRepo struct{ repos }

func (r outboxRepo) Insert(_ context.Context, topic, key string, payload []byte) error {
	d, done, err := r.acquire("outbox.insert")
	if err != nil {
		return err
	}
	defer done()
	id := d.next()
	d.outbox = append(d.outbox, usecase.OutboxRecord{
		ID:        id,
		EventID:   uuid.NewString(),
		Topic:     topic,
		Key:       key,
		Payload:   append([]byte(nil), payload...),
		CreatedAt: r.s.now().UTC(),
	})
	return nil
}

func (r outboxRepo) FetchPending(_ context.Context, limit int) ([]usecase.OutboxRecord, error) {
	d, done, err := r.acquire("outbox.fetch")
	if err != nil {
		return nil, err
	}
	defer done()
	var out []usecase.OutboxRecord
	for _, rec := range d.outbox {
		if d.sent[rec.ID] {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r outboxRepo) MarkSent(_ context.Context, id int64) error {
	d, done, err := r.acquire("outbox.mark_sent")
	if err != nil {
		return err
	}
	defer done()
	d.sent[id] = true
	return nil
}

var _ usecase.Store = (*Store)(nil)
