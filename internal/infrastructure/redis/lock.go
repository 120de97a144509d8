package redis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"emsp/internal/transaction"
)

const lockKeyPrefix = "event_lock:"

// releaseScript deletes the key only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type lockToken struct{ key string }

// Locker is a keyed lock over SET NX with a TTL. The TTL bounds how long a
// crashed holder can block an event. Each acquisition stores its own token,
// so a holder whose key expired cannot delete the next holder's key.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger

	mu     sync.Mutex
	tokens map[string]string
}

func NewLocker(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Locker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locker{client: client, ttl: ttl, logger: logger, tokens: make(map[string]string)}
}

func lockKey(eventID string) string {
	return lockKeyPrefix + eventID
}

// TryLock binds the token to the caller's transaction when there is one,
// otherwise to the locker.
func (l *Locker) TryLock(ctx context.Context, eventID string) (bool, error) {
	key := lockKey(eventID)
	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock for event %s: %w", eventID, err)
	}
	if !acquired {
		return false, nil
	}

	if !transaction.Set(ctx, lockToken{key}, token) {
		l.mu.Lock()
		l.tokens[key] = token
		l.mu.Unlock()
	}
	return true, nil
}

// Unlock deletes the key if this holder still owns it. Inside a transaction
// the delete waits until the transaction has finished so the next holder sees
// its outcome.
func (l *Locker) Unlock(ctx context.Context, eventID string) error {
	key := lockKey(eventID)
	token, ok := l.token(ctx, key)
	if !ok {
		return nil
	}

	release := context.WithoutCancel(ctx)
	if transaction.AfterCompletion(ctx, func() {
		if err := l.release(release, key, token); err != nil {
			l.logger.Error("failed to release event lock", "event_id", eventID, "error", err)
		}
	}) {
		return nil
	}
	return l.release(release, key, token)
}

func (l *Locker) token(ctx context.Context, key string) (string, bool) {
	if v, ok := transaction.Get(ctx, lockToken{key}); ok {
		return v.(string), true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	token, ok := l.tokens[key]
	if ok {
		delete(l.tokens, key)
	}
	return token, ok
}

func (l *Locker) release(ctx context.Context, key, token string) error {
	deleted, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
	if err != nil {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	if deleted == 0 {
		l.logger.Warn("event lock expired before release", "key", key)
	}
	return nil
}
