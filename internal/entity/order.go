package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending         Status = "PENDING"
	StatusAwaitingPayment Status = "AWAITING_PAYMENT"
	StatusCompleted       Status = "COMPLETED"
)

// Open reports whether the cart accumulator may still mutate an order in this state.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusAwaitingPayment
}

type OrderItem struct {
	ID          string
	OrderID     string
	ProductID   string
	ProductName string // read-side only
	Quantity    int
	Price       decimal.Decimal // snapshot at insertion
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID               string
	UserID           string
	Status           Status
	Total            decimal.Decimal
	ShippingAddress  string
	PaymentSessionID string
	Version          int64
	Items            []OrderItem
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ComputeTotal sums price*quantity over the current lines.
func ComputeTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// FindItem returns the line holding productID, if any.
func (o *Order) FindItem(productID string) (*OrderItem, bool) {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			return &o.Items[i], true
		}
	}
	return nil, false
}

func (o *Order) HasItem(itemID string) bool {
	for _, it := range o.Items {
		if it.ID == itemID {
			return true
		}
	}
	return false
}

// Cents converts a decimal amount to minor units, rounding half away from zero.
func Cents(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
