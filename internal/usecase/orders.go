package usecase

import (
	"context"

	domain "github.com/aq2208/gstore-api/internal/entity"
)

// Orders is the purchase history read side.
type Orders struct {
	store Store
}

func NewOrders(store Store) *Orders {
	return &Orders{store: store}
}

// List returns the user's orders, newest first.
func (q *Orders) List(ctx context.Context, userID string) ([]domain.Order, error) {
	return q.store.Orders().ListByUser(ctx, userID)
}

func (q *Orders) Get(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	o, err := q.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}
