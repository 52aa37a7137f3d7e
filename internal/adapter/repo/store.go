package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aq2208/gstore-api/internal/usecase"
	"github.com/go-sql-driver/mysql"
)

var ErrNotFound = usecase.ErrNotFound

const (
	mysqlErrDuplicate  = 1062
	mysqlErrRowIsRefd  = 1451
	mysqlErrNoRefdRow  = 1452
	openStatusesClause = "status IN ('PENDING','AWAITING_PAYMENT')"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repos struct {
	users      *MySQLUserRepo
	products   *MySQLProductRepo
	categories *MySQLCategoryRepo
	orders     *MySQLOrderRepo
	outbox     *MySQLOutboxRepo
}

func newRepos(q queryer) repos {
	return repos{
		users:      &MySQLUserRepo{q: q},
		products:   &MySQLProductRepo{q: q},
		categories: &MySQLCategoryRepo{q: q},
		orders:     &MySQLOrderRepo{q: q},
		outbox:     &MySQLOutboxRepo{q: q},
	}
}

func (r repos) Users() usecase.UserRepo          { return r.users }
func (r repos) Products() usecase.ProductRepo    { return r.products }
func (r repos) Categories() usecase.CategoryRepo { return r.categories }
func (r repos) Orders() usecase.OrderRepo        { return r.orders }
func (r repos) Outbox() usecase.OutboxRepo       { return r.outbox }

// MySQLStore implements usecase.Store on a connection pool.
type MySQLStore struct {
	repos
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{repos: newRepos(db), db: db}
}

func (s *MySQLStore) InTx(ctx context.Context, fn func(r usecase.Repos) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(newRepos(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

var _ usecase.Store = (*MySQLStore)(nil)

// notFound maps sql.ErrNoRows to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func mysqlCode(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// foreignKey maps FK violations to ErrInvalidState.
func foreignKey(err error) error {
	switch mysqlCode(err) {
	case mysqlErrRowIsRefd:
		return fmt.Errorf("%w: still referenced by orders", usecase.ErrInvalidState)
	case mysqlErrNoRefdRow:
		return fmt.Errorf("%w: referenced row does not exist", usecase.ErrInvalidInput)
	}
	return err
}

func affected(res sql.Result) (bool, error) {
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	// rows == 0 → nothing matched (either not found or guard mismatch)
	return rows > 0, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
