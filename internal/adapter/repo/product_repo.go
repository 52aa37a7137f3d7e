package repo

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	domain "github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/usecase"
)

type MySQLProductRepo struct{ q queryer }

var productColumns = []string{
	"id", "name", "description", "price", "stock", "image_url", "seller_id", "category_id", "created_at",
}

func scanProduct(s rowScanner) (*domain.Product, error) {
	var p domain.Product
	var image, category sql.NullString
	if err := s.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &image, &p.SellerID, &category, &p.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	p.ImageURL = image.String
	p.CategoryID = category.String
	return &p, nil
}

func (r *MySQLProductRepo) Create(ctx context.Context, p *domain.Product) error {
	_, err := r.q.ExecContext(ctx, `
INSERT INTO products (id,name,description,price,stock,image_url,seller_id,category_id,created_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Name, p.Description, p.Price, p.Stock, nullString(p.ImageURL), p.SellerID, nullString(p.CategoryID), p.CreatedAt)
	return foreignKey(err)
}

func (r *MySQLProductRepo) Update(ctx context.Context, p *domain.Product) error {
	_, err := r.q.ExecContext(ctx, `
UPDATE products SET name=?, description=?, price=?, stock=?, image_url=?, category_id=?
WHERE id=?`,
		p.Name, p.Description, p.Price, p.Stock, nullString(p.ImageURL), nullString(p.CategoryID), p.ID)
	return foreignKey(err)
}

func (r *MySQLProductRepo) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM products WHERE id=?`, id)
	if err != nil {
		return foreignKey(err)
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

func (r *MySQLProductRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query, args, err := sq.Select(productColumns...).From("products").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	return scanProduct(r.q.QueryRowContext(ctx, query, args...))
}

// List builds the filtered, sorted product query.
func (r *MySQLProductRepo) List(ctx context.Context, f usecase.ProductFilter) ([]domain.Product, error) {
	b := sq.Select(productColumns...).From("products")
	if f.SellerID != "" {
		b = b.Where(sq.Eq{"seller_id": f.SellerID})
	}
	if f.CategoryID != "" {
		b = b.Where(sq.Eq{"category_id": f.CategoryID})
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		b = b.Where(sq.Or{sq.Like{"name": like}, sq.Like{"description": like}})
	}
	switch f.Stock {
	case usecase.StockIn:
		b = b.Where(sq.Gt{"stock": 0})
	case usecase.StockOut:
		b = b.Where(sq.LtOrEq{"stock": 0})
	}
	if f.MinPrice != nil {
		b = b.Where(sq.GtOrEq{"price": *f.MinPrice})
	}
	if f.MaxPrice != nil {
		b = b.Where(sq.LtOrEq{"price": *f.MaxPrice})
	}
	switch f.Sort {
	case usecase.SortPriceAsc:
		b = b.OrderBy("price ASC", "created_at DESC")
	case usecase.SortPriceDesc:
		b = b.OrderBy("price DESC", "created_at DESC")
	default:
		b = b.OrderBy("created_at DESC")
	}
	if f.Limit > 0 {
		b = b.Limit(f.Limit)
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

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *MySQLProductRepo) CountBySeller(ctx context.Context, sellerID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE seller_id=?`, sellerID).Scan(&n)
	return n, err
}

func (r *MySQLProductRepo) DecrementStock(ctx context.Context, id string, qty int) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
UPDATE products SET stock = stock - ?
WHERE id = ? AND stock >= ?`, qty, id, qty)
	if err != nil {
		return false, err
	}
	return affected(res)
}

var _ usecase.ProductRepo = (*MySQLProductRepo)(nil)
