package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"emsp/internal/domain/outbox"
)

func TestLockTimeoutSetting(t *testing.T) {
	cases := map[time.Duration]string{
		time.Nanosecond:         "1ms",
		500 * time.Microsecond:  "1ms",
		time.Millisecond:        "1ms",
		1500 * time.Microsecond: "2ms",
		time.Second:             "1000ms",
	}
	for d, want := range cases {
		assert.Equal(t, want, lockTimeoutSetting(d), d.String())
	}
}

func TestRowLocker_RequiresTransaction(t *testing.T) {
	l := NewRowLocker(time.Second)

	_, err := l.TryLock(context.Background(), "e1")
	assert.ErrorIs(t, err, outbox.ErrNoTransaction)
	assert.ErrorIs(t, l.Unlock(context.Background(), "e1"), outbox.ErrNoTransaction)
}
