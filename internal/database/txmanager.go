package database

import (
	"context"
	"fmt"
	"log/slog"

	"plaza/internal/middleware"

	"gorm.io/gorm"
)

type txContextKey struct{}

// txState is the per-operation transaction state. It is bound to the context
// of a single logical operation and never shared across unrelated operations,
// so concurrent requests keep independent nesting depths.
type txState struct {
	tx    *gorm.DB
	depth int
}

// TxManager runs units of work atomically over a single gorm connection.
// It is the only component that issues BEGIN/SAVEPOINT/COMMIT/ROLLBACK;
// repositories receive their handle through the context.
type TxManager struct {
	db *gorm.DB
}

// NewTxManager returns a TxManager over db.
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// FromContext returns the transaction handle bound to ctx, or fallback when
// the caller is not inside an atomic unit.
func FromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if st, ok := ctx.Value(txContextKey{}).(*txState); ok {
		return st.tx
	}
	return fallback
}

// RunAtomic executes fn so that every storage mutation it performs, directly
// or via nested RunAtomic calls, either all become visible or none do.
//
// At the top level it opens a transaction, commits on success, and rolls back
// fully on any error or panic, returning the original error unchanged. When
// ctx already carries a transaction it creates a savepoint instead, so a
// failure undoes only the nested work while the outer transaction survives.
func (m *TxManager) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if st, ok := ctx.Value(txContextKey{}).(*txState); ok {
		return m.runNested(ctx, st, fn)
	}
	return m.runTopLevel(ctx, fn)
}

func (m *TxManager) runTopLevel(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx := m.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	st := &txState{tx: tx}
	if err = fn(context.WithValue(ctx, txContextKey{}, st)); err != nil {
		// Roll back everything; the caller sees the original error.
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

func (m *TxManager) runNested(ctx context.Context, st *txState, fn func(ctx context.Context) error) (err error) {
	st.depth++
	name := fmt.Sprintf("sp_%d", st.depth)
	defer func() { st.depth-- }()

	if err := st.tx.SavePoint(name).Error; err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			st.tx.RollbackTo(name)
			panic(r)
		}
	}()

	if err = fn(ctx); err != nil {
		if rbErr := st.tx.RollbackTo(name).Error; rbErr != nil {
			middleware.Logger.ErrorContext(ctx, "savepoint rollback failed",
				slog.String("savepoint", name),
				slog.String("error", rbErr.Error()),
			)
		}
		return err
	}

	return st.tx.Exec("RELEASE SAVEPOINT " + name).Error
}
