package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPrice   = errors.New("price must be at least 0.01")
	ErrInvalidStock   = errors.New("stock must not be negative")
	ErrMissingName    = errors.New("name is required")
	ErrMissingDetails = errors.New("description is required")
)

var minPrice = decimal.RequireFromString("0.01")

type Category struct {
	ID   string
	Name string
}

type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	ImageURL    string
	SellerID    string
	CategoryID  string // empty when uncategorised
	CreatedAt   time.Time
}

func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrMissingName
	}
	if strings.TrimSpace(p.Description) == "" {
		return ErrMissingDetails
	}
	if p.Price.LessThan(minPrice) {
		return ErrInvalidPrice
	}
	if p.Stock < 0 {
		return ErrInvalidStock
	}
	return nil
}
