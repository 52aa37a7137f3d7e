package repo

import (
	"context"

	domain "github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/usecase"
)

type MySQLCategoryRepo struct{ q queryer }

func (r *MySQLCategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id,name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

var _ usecase.CategoryRepo = (*MySQLCategoryRepo)(nil)
