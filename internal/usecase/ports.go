package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	domain "github.com/aq2208/gstore-api/internal/entity"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type UserRepo interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.User, error)
}

type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
)

type StockFilter string

const (
	StockAny StockFilter = ""
	StockIn  StockFilter = "in_stock"
	StockOut StockFilter = "out_of_stock"
)

// ProductFilter narrows product listings. Zero values mean "no filter".
type ProductFilter struct {
	SellerID   string
	CategoryID string
	Search     string
	Stock      StockFilter
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       ProductSort
	Limit      uint64
}

type ProductRepo interface {
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, f ProductFilter) ([]domain.Product, error)
	CountBySeller(ctx context.Context, sellerID string) (int, error)
	// DecrementStock subtracts qty only when stock >= qty; false means it did not.
	DecrementStock(ctx context.Context, id string, qty int) (bool, error)
}

type CategoryRepo interface {
	List(ctx context.Context) ([]domain.Category, error)
}

// SaleLine is one sold order line of a seller's product.
type SaleLine struct {
	OrderID     string
	ProductID   string
	ProductName string
	Quantity    int
	Price       decimal.Decimal
	SoldAt      time.Time
}

type OrderRepo interface {
	Create(ctx context.Context, o *domain.Order) error
	// GetByID and GetOpenByUser load the order with its items.
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetOpenByUser(ctx context.Context, userID string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)

	AddItem(ctx context.Context, it *domain.OrderItem) error
	UpdateItemQuantity(ctx context.Context, itemID string, qty int) error
	DeleteItem(ctx context.Context, itemID string) error

	// SaveCart writes total, status, address and session id when the stored
	// version equals expectedVersion and the order is open; it bumps version.
	SaveCart(ctx context.Context, o *domain.Order, expectedVersion int64) (bool, error)
	// Complete flips an open order at expectedVersion to COMPLETED.
	// An empty address keeps the stored one.
	Complete(ctx context.Context, id string, expectedVersion int64, sessionID, address string) (bool, error)

	SalesBySeller(ctx context.Context, sellerID string, limit int) ([]SaleLine, error)
}

type OutboxRecord struct {
	ID        int64
	EventID   string
	Topic     string
	Key       string
	Payload   []byte
	CreatedAt time.Time
}

type OutboxRepo interface {
	Insert(ctx context.Context, topic, key string, payload []byte) error
	FetchPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, id int64) error
}

type Repos interface {
	Users() UserRepo
	Products() ProductRepo
	Categories() CategoryRepo
	Orders() OrderRepo
	Outbox() OutboxRepo
}

// Store is the persistent store. InTx runs fn in one transaction: fn returning
// an error rolls everything back.
type Store interface {
	Repos
	InTx(ctx context.Context, fn func(r Repos) error) error
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

type CartCache interface {
	GetCart(ctx context.Context, userID string) (*CartView, bool, error)
	SetCart(ctx context.Context, userID string, v *CartView) error
	InvalidateCart(ctx context.Context, userID string) error
}

type CatalogCache interface {
	GetHome(ctx context.Context) (*HomeView, bool, error)
	SetHome(ctx context.Context, v *HomeView) error
	InvalidateHome(ctx context.Context) error
}

// Payment gateway

const PaymentStatusPaid = "paid"

type LineItem struct {
	Name            string
	UnitAmountCents int64
	Quantity        int
}

type SessionMetadata struct {
	OrderID string
	UserID  string
}

type SessionRequest struct {
	LineItems     []LineItem
	Currency      string
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	Metadata      SessionMetadata
}

// IdempotencyKey is stable for the same order and cart contents, so a retried
// request reuses the session while an edited cart gets a new one.
func (r SessionRequest) IdempotencyKey() string {
	var b strings.Builder
	b.WriteString(r.Currency)
	for _, li := range r.LineItems {
		fmt.Fprintf(&b, "|%s:%d:%d", li.Name, li.UnitAmountCents, li.Quantity)
	}
	return "checkout-" + r.Metadata.OrderID + "-" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(b.String())).String()
}

type PaymentSession struct {
	ID               string
	URL              string
	PaymentStatus    string
	AmountTotalCents int64
	Metadata         SessionMetadata
}

type PaymentGateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*PaymentSession, error)
	RetrieveSession(ctx context.Context, id string) (*PaymentSession, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type Token struct {
	AccessToken string
	ExpiresIn   time.Duration
}

type TokenIssuer interface {
	Issue(u *domain.User) (Token, error)
}

// Recorder receives business outcomes for metrics.
type Recorder interface {
	CheckoutOutcome(path, outcome string)
	OrderCompleted(path string, total decimal.Decimal)
}

type nopRecorder struct{}

func (nopRecorder) CheckoutOutcome(string, string)          {}
func (nopRecorder) OrderCompleted(string, decimal.Decimal) {}
