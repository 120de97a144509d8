package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"emsp/internal/domain/outbox"
)

// RowLocker locks the event's row for the rest of the caller's transaction.
// Commit or rollback releases it.
type RowLocker struct {
	timeout time.Duration
}

func NewRowLocker(timeout time.Duration) *RowLocker {
	return &RowLocker{timeout: timeout}
}

// TryLock waits at most the configured timeout. It returns false when the
// row is held elsewhere or does not exist. It fails without a transaction.
func (l *RowLocker) TryLock(ctx context.Context, eventID string) (bool, error) {
	tx := GetTx(ctx)
	if tx == nil {
		return false, fmt.Errorf("row lock for event %s: %w", eventID, outbox.ErrNoTransaction)
	}

	// A timed out lock aborts the transaction, so wait inside a savepoint.
	sp, err := tx.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("open savepoint: %w", err)
	}

	var previous string
	err = sp.QueryRow(ctx,
		`SELECT current_setting('lock_timeout'), set_config('lock_timeout', $1, true)`,
		lockTimeoutSetting(l.timeout),
	).Scan(&previous, new(string))
	if err != nil {
		_ = sp.Rollback(ctx)
		return false, fmt.Errorf("set lock timeout: %w", err)
	}

	var locked string
	err = sp.QueryRow(ctx, `SELECT event_id FROM domain_events WHERE event_id = $1 FOR UPDATE`, eventID).Scan(&locked)
	switch {
	case errors.Is(err, pgx.ErrNoRows), isLockTimeout(err):
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return false, fmt.Errorf("rollback savepoint: %w", rbErr)
		}
		return false, nil
	case err != nil:
		_ = sp.Rollback(ctx)
		return false, fmt.Errorf("lock event %s: %w", eventID, err)
	}

	if _, err := sp.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, previous); err != nil {
		_ = sp.Rollback(ctx)
		return false, fmt.Errorf("restore lock timeout: %w", err)
	}
	if err := sp.Commit(ctx); err != nil {
		return false, fmt.Errorf("release savepoint: %w", err)
	}
	return true, nil
}

// lockTimeoutSetting renders d in whole milliseconds, rounded up. Postgres
// reads 0 as no timeout at all, so anything positive becomes at least 1ms.
func lockTimeoutSetting(d time.Duration) string {
	ms := (d + time.Millisecond - 1) / time.Millisecond
	if ms < 1 {
		ms = 1
	}
	return fmt.Sprintf("%dms", ms)
}

// Unlock is a no-op: the row lock lives until the transaction ends.
func (l *RowLocker) Unlock(ctx context.Context, eventID string) error {
	if GetTx(ctx) == nil {
		return fmt.Errorf("row unlock for event %s: %w", eventID, outbox.ErrNoTransaction)
	}
	return nil
}
