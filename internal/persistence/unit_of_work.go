package persistence

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
)

type unitOfWorkKey struct{}

// UnitOfWork scopes every repository call of one request to a single transaction.
// The transaction is opened on first use and must be closed with End.
type UnitOfWork struct {
	mu    sync.Mutex
	pool  Pool
	tx    pgx.Tx
	ended bool
}

// BeginUnitOfWork attaches a new unit of work to ctx.
func BeginUnitOfWork(ctx context.Context, pool Pool) (context.Context, *UnitOfWork) {
	uow := &UnitOfWork{pool: pool}
	return context.WithValue(ctx, unitOfWorkKey{}, uow), uow
}

func unitOfWorkFrom(ctx context.Context) *UnitOfWork {
	uow, _ := ctx.Value(unitOfWorkKey{}).(*UnitOfWork)
	return uow
}

func (u *UnitOfWork) querier(ctx context.Context) (Querier, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.ended {
		return nil, errors.New("unit of work already ended")
	}
	if u.tx != nil {
		return u.tx, nil
	}
	if u.pool == nil {
		return nil, errors.New("postgres pool not configured")
	}
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	u.tx = tx
	return tx, nil
}

// Started reports whether a transaction was opened.
func (u *UnitOfWork) Started() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tx != nil
}

// End commits or rolls back the transaction, if any. It is safe to call more than once.
func (u *UnitOfWork) End(ctx context.Context, commit bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.ended {
		return nil
	}
	u.ended = true
	if u.tx == nil {
		return nil
	}
	tx := u.tx
	u.tx = nil
	if commit {
		if err := tx.Commit(ctx); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
		return nil
	}
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}
