package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsJobs(t *testing.T) {
	p := NewPool(context.Background(), 3, 10, nil)

	var done atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(func(ctx context.Context) { done.Add(1) }))
	}
	p.Close()

	assert.EqualValues(t, 10, done.Load())
}

func TestPool_RejectsWhenFull(t *testing.T) {
	p := NewPool(context.Background(), 1, 1, nil)
	started := make(chan struct{})
	release := make(chan struct{})

	require.NoError(t, p.Submit(func(ctx context.Context) {
		close(started)
		<-release
	}))
	<-started

	require.NoError(t, p.Submit(func(ctx context.Context) {}))
	assert.ErrorIs(t, p.Submit(func(ctx context.Context) {}), ErrQueueFull)

	close(release)
	p.Close()
}

func TestPool_RejectsAfterClose(t *testing.T) {
	p := NewPool(context.Background(), 1, 1, nil)
	p.Close()
	p.Close()

	assert.ErrorIs(t, p.Submit(func(ctx context.Context) {}), ErrPoolClosed)
}

func TestPool_SurvivesPanickingJob(t *testing.T) {
	p := NewPool(context.Background(), 1, 4, nil)
	ran := make(chan struct{})

	require.NoError(t, p.Submit(func(ctx context.Context) { panic("boom") }))
	require.NoError(t, p.Submit(func(ctx context.Context) { close(ran) }))

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive a panicking job")
	}
	p.Close()
}

func TestPool_JobContextOutlivesCaller(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPool(ctx, 1, 1, nil)
	cancel()

	errCh := make(chan error, 1)
	require.NoError(t, p.Submit(func(ctx context.Context) { errCh <- ctx.Err() }))
	p.Close()

	assert.NoError(t, <-errCh)
}
