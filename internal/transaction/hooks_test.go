package transaction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHooks_NoTransaction(t *testing.T) {
	ctx := context.Background()

	assert.False(t, Active(ctx))
	assert.False(t, AfterCommit(ctx, func() {}))
	assert.False(t, AfterCompletion(ctx, func() {}))
}

func TestHooks_Commit(t *testing.T) {
	ctx, h := Begin(context.Background())
	assert.True(t, Active(ctx))

	var order []string
	assert.True(t, AfterCommit(ctx, func() { order = append(order, "commit") }))
	assert.True(t, AfterCompletion(ctx, func() { order = append(order, "finish") }))

	h.Complete(true)

	assert.Equal(t, []string{"finish", "commit"}, order)
	assert.False(t, Active(ctx))
	assert.False(t, AfterCommit(ctx, func() {}), "completed transaction accepts no hooks")

	h.Complete(true)
	assert.Len(t, order, 2, "hooks run once")
}

func TestHooks_Rollback(t *testing.T) {
	ctx, h := Begin(context.Background())

	committed, finished := false, false
	AfterCommit(ctx, func() { committed = true })
	AfterCompletion(ctx, func() { finished = true })

	h.Complete(false)

	assert.False(t, committed)
	assert.True(t, finished)
}

func TestValues_ScopedToTransaction(t *testing.T) {
	assert.False(t, Set(context.Background(), "k", 1))

	ctx, hooks := Begin(context.Background())
	_, ok := Get(ctx, "k")
	assert.False(t, ok)

	assert.True(t, Set(ctx, "k", "token"))
	v, ok := Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "token", v)

	other, _ := Begin(context.Background())
	_, ok = Get(other, "k")
	assert.False(t, ok)

	hooks.Complete(true)
	assert.False(t, Set(ctx, "k", "late"))
}
