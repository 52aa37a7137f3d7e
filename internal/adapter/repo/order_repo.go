package repo

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	domain "github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/usecase"
)

type MySQLOrderRepo struct{ q queryer }

const orderColumns = `id,user_id,status,total,shipping_address,payment_session_id,version,created_at,updated_at`

func scanOrder(s rowScanner) (*domain.Order, error) {
	var o domain.Order
	var status string
	var address, session sql.NullString
	if err := s.Scan(&o.ID, &o.UserID, &status, &o.Total, &address, &session, &o.Version, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	o.Status = domain.Status(status)
	o.ShippingAddress = address.String
	o.PaymentSessionID = session.String
	return &o, nil
}

func (r *MySQLOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	_, err := r.q.ExecContext(ctx, `
INSERT INTO orders (id,user_id,status,total,shipping_address,payment_session_id,version,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		o.ID, o.UserID, string(o.Status), o.Total, nullString(o.ShippingAddress), nullString(o.PaymentSessionID),
		o.Version, o.CreatedAt, o.UpdatedAt)
	if mysqlCode(err) == mysqlErrDuplicate {
		// another request opened this user's cart first
		return usecase.ErrConflict
	}
	return foreignKey(err)
}

func (r *MySQLOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(r.q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=?`, id))
	if err != nil {
		return nil, err
	}
	return o, r.loadItems(ctx, o)
}

func (r *MySQLOrderRepo) GetOpenByUser(ctx context.Context, userID string) (*domain.Order, error) {
	o, err := scanOrder(r.q.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id=? AND `+openStatusesClause+` LIMIT 1`, userID))
	if err != nil {
		return nil, err
	}
	return o, r.loadItems(ctx, o)
}

func (r *MySQLOrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id=? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, len(out))
	idx := make(map[string]int, len(out))
	for i, o := range out {
		ids[i] = o.ID
		idx[o.ID] = i
	}
	items, err := r.items(ctx, sq.Eq{"oi.order_id": ids})
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		i := idx[it.OrderID]
		out[i].Items = append(out[i].Items, it)
	}
	return out, nil
}

func (r *MySQLOrderRepo) loadItems(ctx context.Context, o *domain.Order) error {
	items, err := r.items(ctx, sq.Eq{"oi.order_id": o.ID})
	if err != nil {
		return err
	}
	o.Items = items
	return nil
}

func (r *MySQLOrderRepo) items(ctx context.Context, where sq.Sqlizer) ([]domain.OrderItem, error) {
	query, args, err := sq.
		Select("oi.id", "oi.order_id", "oi.product_id", "p.name", "oi.quantity", "oi.price").
		From("order_items oi").
		Join("products p ON p.id = oi.product_id").
		Where(where).
		OrderBy("oi.created_at", "oi.id").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *MySQLOrderRepo) AddItem(ctx context.Context, it *domain.OrderItem) error {
	_, err := r.q.ExecContext(ctx, `
INSERT INTO order_items (id,order_id,product_id,quantity,price,created_at)
VALUES (?,?,?,?,?,NOW(6))`, it.ID, it.OrderID, it.ProductID, it.Quantity, it.Price)
	if mysqlCode(err) == mysqlErrDuplicate {
		return usecase.ErrConflict
	}
	return foreignKey(err)
}

func (r *MySQLOrderRepo) UpdateItemQuantity(ctx context.Context, itemID string, qty int) error {
	res, err := r.q.ExecContext(ctx, `UPDATE order_items SET quantity=? WHERE id=?`, qty, itemID)
	if err != nil {
		return err
	}
	return r.mustExist(ctx, res, itemID)
}

func (r *MySQLOrderRepo) DeleteItem(ctx context.Context, itemID string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM order_items WHERE id=?`, itemID)
	if err != nil {
		return err
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// mustExist treats an unchanged row as success and a missing row as ErrNotFound.
func (r *MySQLOrderRepo) mustExist(ctx context.Context, res sql.Result, itemID string) error {
	ok, err := affected(res)
	if err != nil || ok {
		return err
	}
	var one int
	err = r.q.QueryRowContext(ctx, `SELECT 1 FROM order_items WHERE id=?`, itemID).Scan(&one)
	return notFound(err)
}

func (r *MySQLOrderRepo) SaveCart(ctx context.Context, o *domain.Order, expectedVersion int64) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
UPDATE orders
SET total = ?, status = ?, shipping_address = ?, payment_session_id = ?, version = version + 1, updated_at = NOW(6)
WHERE id = ? AND version = ? AND `+openStatusesClause,
		o.Total, string(o.Status), nullString(o.ShippingAddress), nullString(o.PaymentSessionID),
		o.ID, expectedVersion,
	)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *MySQLOrderRepo) Complete(ctx context.Context, id string, expectedVersion int64, sessionID, address string) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
UPDATE orders
SET status = 'COMPLETED',
    payment_session_id = COALESCE(NULLIF(?, ''), payment_session_id),
    shipping_address = COALESCE(NULLIF(?, ''), shipping_address),
    version = version + 1,
    updated_at = NOW(6)
WHERE id = ? AND version = ? AND `+openStatusesClause,
		sessionID, address, id, expectedVersion,
	)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *MySQLOrderRepo) SalesBySeller(ctx context.Context, sellerID string, limit int) ([]usecase.SaleLine, error) {
	b := sq.Select("o.id", "p.id", "p.name", "oi.quantity", "oi.price", "o.updated_at").
		From("order_items oi").
		Join("products p ON p.id = oi.product_id").
		Join("orders o ON o.id = oi.order_id").
		Where(sq.Eq{"p.seller_id": sellerID, "o.status": string(domain.StatusCompleted)}).
		OrderBy("o.updated_at DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []usecase.SaleLine
	for rows.Next() {
		var s usecase.SaleLine
		if err := rows.Scan(&s.OrderID, &s.ProductID, &s.ProductName, &s.Quantity, &s.Price, &s.SoldAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

var _ usecase.OrderRepo = (*MySQLOrderRepo)(nil)

