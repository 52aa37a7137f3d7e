package repo

import (
	"context"

	domain "github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/usecase"
)

type MySQLUserRepo struct{ q queryer }

const userColumns = `id,name,email,password_hash,role,created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*domain.User, error) {
	var u domain.User
	var role string
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	u.Role = domain.Role(role)
	return &u, nil
}

func (r *MySQLUserRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.q.ExecContext(ctx, `
INSERT INTO users (id,name,email,password_hash,role,created_at)
VALUES (?,?,?,?,?,?)`, u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt)
	if mysqlCode(err) == mysqlErrDuplicate {
		return usecase.ErrEmailTaken
	}
	return err
}

func (r *MySQLUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
}

func (r *MySQLUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=?`, email))
}

func (r *MySQLUserRepo) Update(ctx context.Context, u *domain.User) error {
	res, err := r.q.ExecContext(ctx, `
UPDATE users SET name=?, password_hash=?, role=? WHERE id=?`,
		u.Name, u.PasswordHash, string(u.Role), u.ID)
	if err != nil {
		return err
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		// unchanged rows also report 0; tell them apart from a missing user
		if _, err := r.GetByID(ctx, u.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the user with their orders; products cascade in the schema.
// Run it inside a transaction.
func (r *MySQLUserRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM orders WHERE user_id=?`, id); err != nil {
		return foreignKey(err)
	}
	res, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
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

func (r *MySQLUserRepo) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

var _ usecase.UserRepo = (*MySQLUserRepo)(nil)
