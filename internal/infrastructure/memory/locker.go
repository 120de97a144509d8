package memory

import (
	"context"
	"sync"
	"time"

	"emsp/internal/transaction"
)

// Locker is a keyed lock with expiry, the in-process twin of the redis lock.
type Locker struct {
	mu    sync.Mutex
	ttl   time.Duration
	held  map[string]time.Time
	clock func() time.Time
}

func NewLocker(ttl time.Duration) *Locker {
	return &Locker{
		ttl:   ttl,
		held:  make(map[string]time.Time),
		clock: time.Now,
	}
}

// WithClock replaces the time source used for expiry.
func (l *Locker) WithClock(clock func() time.Time) *Locker {
	l.clock = clock
	return l
}

func (l *Locker) TryLock(ctx context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if expires, ok := l.held[eventID]; ok && now.Before(expires) {
		return false, nil
	}
	l.held[eventID] = now.Add(l.ttl)
	return true, nil
}

// Unlock releases the lock once the surrounding transaction has finished, or
// right away outside a transaction.
func (l *Locker) Unlock(ctx context.Context, eventID string) error {
	if transaction.AfterCompletion(ctx, func() { l.release(eventID) }) {
		return nil
	}
	l.release(eventID)
	return nil
}

func (l *Locker) release(eventID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, eventID)
}
