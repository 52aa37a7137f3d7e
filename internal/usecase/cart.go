package usecase

import (
	"context"
	"errors"
	"time"

	domain "github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/logging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart keeps exactly one open order per user consistent with its lines.
type Cart struct {
	store   Store
	carts   CartCache
	catalog CatalogCache
	now     func() time.Time
}

func NewCart(store Store, carts CartCache, catalog CatalogCache) *Cart {
	return &Cart{store: store, carts: carts, catalog: catalog, now: time.Now}
}

func (c *Cart) View(ctx context.Context, userID string) (*CartView, error) {
	if c.carts != nil {
		if v, ok, err := c.carts.GetCart(ctx, userID); err == nil && ok {
			return v, nil
		}
	}
	o, err := c.store.Orders().GetOpenByUser(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	v := newCartView(o)
	if c.carts != nil {
		if err := c.carts.SetCart(ctx, userID, v); err != nil {
			logging.FromCtx(ctx).Warn("cart cache set failed", "user_id", userID, "err", err)
		}
	}
	return v, nil
}

// Add puts qty units of productID into the user's open order, creating the
// order on first use. New lines snapshot the product's current price.
func (c *Cart) Add(ctx context.Context, userID, productID string, qty int) (*CartView, error) {
	if qty <= 0 {
		return nil, ErrInvalidInput
	}
	var order *domain.Order
	err := c.store.InTx(ctx, func(r Repos) error {
		p, err := r.Products().GetByID(ctx, productID)
		if err != nil {
			return err
		}

		o, err := r.Orders().GetOpenByUser(ctx, userID)
		switch {
		case errors.Is(err, ErrNotFound):
			now := c.now().UTC()
			o = &domain.Order{
				ID:        uuid.NewString(),
				UserID:    userID,
				Status:    domain.StatusPending,
				Total:     decimal.Zero,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := r.Orders().Create(ctx, o); err != nil {
				return err
			}
		case err != nil:
			return err
		}

		if it, ok := o.FindItem(productID); ok {
			it.Quantity += qty
			if err := r.Orders().UpdateItemQuantity(ctx, it.ID, it.Quantity); err != nil {
				return err
			}
		} else {
			it := domain.OrderItem{
				ID:          uuid.NewString(),
				OrderID:     o.ID,
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    qty,
				Price:       p.Price,
			}
			if err := r.Orders().AddItem(ctx, &it); err != nil {
				return err
			}
			o.Items = append(o.Items, it)
		}

		order = o
		return saveCart(ctx, r, o)
	})
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, userID)
	return newCartView(order), nil
}

// Remove deletes a line of the caller's open order.
func (c *Cart) Remove(ctx context.Context, userID, itemID string) (*CartView, error) {
	var order *domain.Order
	err := c.store.InTx(ctx, func(r Repos) error {
		o, err := ownedOpenOrder(ctx, r, userID, itemID)
		if err != nil {
			return err
		}
		if err := r.Orders().DeleteItem(ctx, itemID); err != nil {
			return err
		}
		kept := o.Items[:0]
		for _, it := range o.Items {
			if it.ID != itemID {
				kept = append(kept, it)
			}
		}
		o.Items = kept

		order = o
		return saveCart(ctx, r, o)
	})
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, userID)
	return newCartView(order), nil
}

// SetQuantity sets a line's quantity; qty <= 0 removes the line. Stock is not
// checked here, only at completion.
func (c *Cart) SetQuantity(ctx context.Context, userID, itemID string, qty int) (*CartView, error) {
	if qty <= 0 {
		return c.Remove(ctx, userID, itemID)
	}
	var order *domain.Order
	err := c.store.InTx(ctx, func(r Repos) error {
		o, err := ownedOpenOrder(ctx, r, userID, itemID)
		if err != nil {
			return err
		}
		if err := r.Orders().UpdateItemQuantity(ctx, itemID, qty); err != nil {
			return err
		}
		for i := range o.Items {
			if o.Items[i].ID == itemID {
				o.Items[i].Quantity = qty
			}
		}

		order = o
		return saveCart(ctx, r, o)
	})
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, userID)
	return newCartView(order), nil
}

// ownedOpenOrder answers ErrNotFound both when the item is missing and when it
// belongs to someone else.
func ownedOpenOrder(ctx context.Context, r Repos, userID, itemID string) (*domain.Order, error) {
	o, err := r.Orders().GetOpenByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !o.HasItem(itemID) {
		return nil, ErrNotFound
	}
	return o, nil
}

// saveCart recomputes the total and writes it with a version check. Touching an
// order that awaits payment reopens it and drops the stale session.
func saveCart(ctx context.Context, r Repos, o *domain.Order) error {
	expected := o.Version
	if o.Status == domain.StatusAwaitingPayment {
		o.Status = domain.StatusPending
		o.PaymentSessionID = ""
	}
	o.Total = domain.ComputeTotal(o.Items)

	ok, err := r.Orders().SaveCart(ctx, o, expected)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	o.Version = expected + 1
	return nil
}

func (c *Cart) invalidate(ctx context.Context, userID string) {
	l := logging.FromCtx(ctx)
	if c.carts != nil {
		if err := c.carts.InvalidateCart(ctx, userID); err != nil {
			l.Warn("cart cache invalidate failed", "user_id", userID, "err", err)
		}
	}
	if c.catalog != nil {
		if err := c.catalog.InvalidateHome(ctx); err != nil {
			l.Warn("home cache invalidate failed", "err", err)
		}
	}
}
