package usecase

import (
	domain "github.com/aq2208/gstore-api/internal/entity"
	"github.com/shopspring/decimal"
)

// CartView is the cached read model of a user's open order.
type CartView struct {
	OrderID string          `json:"orderId,omitempty"`
	Status  string          `json:"status,omitempty"`
	Total   decimal.Decimal `json:"total"`
	Version int64           `json:"version"`
	Items   []CartLine      `json:"items"`
}

type CartLine struct {
	ItemID      string          `json:"itemId"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

func newCartView(o *domain.Order) *CartView {
	v := &CartView{Total: decimal.Zero, Items: []CartLine{}}
	if o == nil {
		return v
	}
	v.OrderID = o.ID
	v.Status = string(o.Status)
	v.Total = o.Total
	v.Version = o.Version
	for _, it := range o.Items {
		v.Items = append(v.Items, CartLine{
			ItemID:      it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
			Subtotal:    it.Subtotal(),
		})
	}
	return v
}

// HomeView is the cached landing page payload.
type HomeView struct {
	Featured   []ProductView  `json:"featured"`
	Categories []CategoryView `json:"categories"`
}

type ProductView struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	SellerID    string          `json:"sellerId"`
	CategoryID  string          `json:"categoryId,omitempty"`
}

type CategoryView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newProductView(p domain.Product) ProductView {
	return ProductView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		SellerID:    p.SellerID,
		CategoryID:  p.CategoryID,
	}
}

func newProductViews(ps []domain.Product) []ProductView {
	out := make([]ProductView, 0, len(ps))
	for _, p := range ps {
		out = append(out, newProductView(p))
	}
	return out
}
