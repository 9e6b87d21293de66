package memstore

import (
	"context"
	"errors"

	"carpool/internal/ports"
)

type ctxKey struct{}

var txKey = ctxKey{}

// tx tracks the row locks held and the undo journal of one unit of work.
type tx struct {
	locks *lockTable
	held  map[string]struct{}
	order []string
	undo  []func()
}

func newTx(locks *lockTable) *tx {
	return &tx{locks: locks, held: make(map[string]struct{})}
}

// lock takes key for the rest of the transaction. Re-locking a held key is a no-op.
func (t *tx) lock(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	if err := t.locks.acquire(ctx, key); err != nil {
		return err
	}
	t.held[key] = struct{}{}
	t.order = append(t.order, key)
	return nil
}

func (t *tx) onRollback(fn func()) {
	t.undo = append(t.undo, fn)
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *tx) unlockAll() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.locks.release(t.order[i])
	}
	t.order = nil
	clear(t.held)
}

// unitOfWork coordinates transactional execution against a Store.
type unitOfWork struct {
	store *Store
}

// NewUnitOfWork constructs a unitOfWork that is bound to the given store.
func NewUnitOfWork(store *Store) ports.UnitOfWork {
	return &unitOfWork{store: store}
}

// WithinTx executes fn within a transaction.
//   - If a transaction already exists in ctx, fn joins it.
//   - If fn returns an error or panics, every write made through the repositories is undone.
//   - Row locks are released only after commit or rollback.
func (uow *unitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	t := newTx(uow.store.locks)

	defer func() {
		if p := recover(); p != nil {
			t.rollback()
			t.unlockAll()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey, t)); err != nil {
		t.rollback()
		t.unlockAll()
		return err
	}

	t.unlockAll()
	return nil
}

func txFromContext(ctx context.Context) (*tx, bool) {
	t, ok := ctx.Value(txKey).(*tx)
	return t, ok
}

func mustTx(ctx context.Context) (*tx, error) {
	if t, ok := txFromContext(ctx); ok {
		return t, nil
	}
	return nil, errors.New("no transaction in context: call this repository within UnitOfWork.WithinTx")
}
