package memory

import (
	"context"

	"emsp/internal/transaction"
)

// Transactor opens a hook scope per unit of work. Nested calls join the
// outer one.
type Transactor struct{}

func NewTransactor() *Transactor {
	return &Transactor{}
}

func (Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if transaction.Active(ctx) {
		return fn(ctx)
	}

	txCtx, hooks := transaction.Begin(ctx)
	defer func() {
		if p := recover(); p != nil {
			hooks.Complete(false)
			panic(p)
		}
		hooks.Complete(err == nil)
	}()

	return fn(txCtx)
}
