package http

import (
	"time"

	domain "github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/usecase"
	"github.com/shopspring/decimal"
)

type userResp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResp(u *domain.User) userResp {
	return userResp{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role), CreatedAt: u.CreatedAt}
}

type orderItemResp struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type orderResp struct {
	ID               string          `json:"id"`
	Status           string          `json:"status"`
	Total            decimal.Decimal `json:"total"`
	ShippingAddress  string          `json:"shippingAddress,omitempty"`
	PaymentSessionID string          `json:"paymentSessionId,omitempty"`
	Items            []orderItemResp `json:"items"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func toOrderResp(o *domain.Order) orderResp {
	out := orderResp{
		ID:               o.ID,
		Status:           string(o.Status),
		Total:            o.Total,
		ShippingAddress:  o.ShippingAddress,
		PaymentSessionID: o.PaymentSessionID,
		Items:            make([]orderItemResp, 0, len(o.Items)),
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, orderItemResp{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
			Subtotal:    it.Subtotal(),
		})
	}
	return out
}

type saleResp struct {
	OrderID     string          `json:"orderId"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	SoldAt      time.Time       `json:"soldAt"`
}

type dashboardResp struct {
	ProductCount int             `json:"productCount"`
	Revenue      decimal.Decimal `json:"revenue"`
	UnitsSold    int             `json:"unitsSold"`
	RecentSales  []saleResp      `json:"recentSales"`
}

func toDashboardResp(d usecase.SellerDashboard) dashboardResp {
	out := dashboardResp{
		ProductCount: d.ProductCount,
		Revenue:      d.Revenue,
		UnitsSold:    d.UnitsSold,
		RecentSales:  make([]saleResp, 0, len(d.RecentSales)),
	}
	for _, s := range d.RecentSales {
		out.RecentSales = append(out.RecentSales, saleResp{
			OrderID:     s.OrderID,
			ProductID:   s.ProductID,
			ProductName: s.ProductName,
			Quantity:    s.Quantity,
			Price:       s.Price,
			SoldAt:      s.SoldAt,
		})
	}
	return out
}
