// Package transaction carries per-transaction callbacks through a context so
// components can defer work until the surrounding unit of work has finished.
package transaction

import (
	"context"
	"sync"
)

type hooksKey struct{}

// Hooks collects callbacks for one transaction.
type Hooks struct {
	mu          sync.Mutex
	afterCommit []func()
	afterFinish []func()
	values      map[any]any
	completed   bool
}

// Begin attaches a fresh hook set to ctx.
func Begin(ctx context.Context) (context.Context, *Hooks) {
	h := &Hooks{}
	return context.WithValue(ctx, hooksKey{}, h), h
}

func fromContext(ctx context.Context) *Hooks {
	h, _ := ctx.Value(hooksKey{}).(*Hooks)
	return h
}

// Active reports whether ctx belongs to a transaction that has not finished.
func Active(ctx context.Context) bool {
	h := fromContext(ctx)
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.completed
}

// AfterCommit schedules fn to run once the transaction commits. It returns
// false when ctx has no active transaction; fn is not scheduled then.
func AfterCommit(ctx context.Context, fn func()) bool {
	return register(ctx, fn, true)
}

// AfterCompletion schedules fn to run once the transaction commits or rolls
// back. It returns false when ctx has no active transaction.
func AfterCompletion(ctx context.Context, fn func()) bool {
	return register(ctx, fn, false)
}

func register(ctx context.Context, fn func(), commitOnly bool) bool {
	h := fromContext(ctx)
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.completed {
		return false
	}
	if commitOnly {
		h.afterCommit = append(h.afterCommit, fn)
	} else {
		h.afterFinish = append(h.afterFinish, fn)
	}
	return true
}

// Set stores v under key for the lifetime of the transaction. It returns
// false when ctx has no active transaction.
func Set(ctx context.Context, key, v any) bool {
	h := fromContext(ctx)
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.completed {
		return false
	}
	if h.values == nil {
		h.values = make(map[any]any)
	}
	h.values[key] = v
	return true
}

// Get returns the value stored under key in ctx's transaction.
func Get(ctx context.Context, key any) (any, bool) {
	h := fromContext(ctx)
	if h == nil {
		return nil, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.values[key]
	return v, ok
}

// Complete closes the hook set and runs the callbacks. Completion callbacks
// run first so locks are released before commit callbacks start new work.
func (h *Hooks) Complete(committed bool) {
	h.mu.Lock()
	if h.completed {
		h.mu.Unlock()
		return
	}
	h.completed = true
	finish := h.afterFinish
	commit := h.afterCommit
	h.afterFinish, h.afterCommit = nil, nil
	h.mu.Unlock()

	for _, fn := range finish {
		fn()
	}
	if !committed {
		return
	}
	for _, fn := range commit {
		fn()
	}
}
