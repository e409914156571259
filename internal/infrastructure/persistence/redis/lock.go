package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/academy-hub/attendance-hub/pkg/logger"
)

// ErrLockHeld is returned when another holder owns the lock.
var ErrLockHeld = errors.New("lock: already held")

// releaseScript deletes the key only when it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out SET NX based locks.
type Locker struct {
	cache *Cache
	ttl   time.Duration
	log   *logger.Logger
}

// NewLocker creates a locker. ttl bounds how long a crashed holder blocks others.
func NewLocker(cache *Cache, ttl time.Duration, log *logger.Logger) *Locker {
	if ttl <= 0 {
		ttl = TTLDistributedLock
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Locker{cache: cache, ttl: ttl, log: log}
}

// Lock is a held lock.
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

// Acquire takes the named lock or returns ErrLockHeld.
func (l *Locker) Acquire(ctx context.Context, name string) (*Lock, error) {
	key := l.cache.Key(PrefixLock, name)
	token := uuid.NewString()
	ok, err := l.cache.Client().SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lock{client: l.cache.Client(), key: key, token: token}, nil
}

// Release frees the lock if it is still ours.
func (lk *Lock) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, lk.client, []string{lk.key}, lk.token).Err()
}

// WithLock runs fn while holding name. It reports ran=false when another
// holder has the lock.
func (l *Locker) WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) (bool, error) {
	lk, err := l.Acquire(ctx, name)
	if errors.Is(err, ErrLockHeld) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer l.release(context.WithoutCancel(ctx), lk)
	return true, fn(ctx)
}

// release frees lk; a failure leaves the key to expire after the TTL.
func (l *Locker) release(ctx context.Context, lk *Lock) {
	if err := lk.Release(ctx); err != nil {
		l.log.Warn("lock release failed, held until ttl expires",
			logger.String("key", lk.key),
			logger.Duration("ttl", l.ttl),
			logger.Err(err),
		)
	}
}
