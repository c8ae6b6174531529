package runlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for run locking.
var lockTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "withdraw_run_lock_total",
	Help: "Run lock operations by result (acquired, held, released, error)",
}, []string{"result"})

// releaseScript deletes the key only if it still holds our owner token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker acquires and releases run locks in Redis.
type Locker struct {
	redis  *redis.Client
	logger zerolog.Logger
	now    func() time.Time
}

// NewLocker creates a new locker.
func NewLocker(redisClient *redis.Client, logger zerolog.Logger) *Locker {
	return &Locker{
		redis:  redisClient,
		logger: logger,
		now:    time.Now,
	}
}

// Acquire takes the lock named name for ttl. It returns ErrLocked if another
// owner holds it.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lock, error) {
	if l.redis == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if name == "" {
		return nil, fmt.Errorf("lock name is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("lock ttl must be > 0 (got %s)", ttl)
	}

	lock := &Lock{
		Key:        Key(name),
		Owner:      uuid.NewString(),
		AcquiredAt: l.now(),
		TTL:        ttl,
	}

	ok, err := l.redis.SetNX(ctx, lock.Key, lock.Owner, ttl).Result()
	if err != nil {
		lockTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("acquire %s: %w", lock.Key, err)
	}
	if !ok {
		lockTotal.WithLabelValues("held").Inc()
		remaining, _ := l.redis.PTTL(ctx, lock.Key).Result()
		l.logger.Warn().
			Str("key", lock.Key).
			Dur("expires_in", remaining).
			Msg("Run lock held by another process")
		return nil, ErrLocked
	}

	lockTotal.WithLabelValues("acquired").Inc()
	l.logger.Debug().
		Str("key", lock.Key).
		Time("expires_at", lock.ExpiresAt()).
		Msg("Run lock acquired")

	return lock, nil
}

// Release deletes the lock if it is still ours. Releasing a lock that expired
// or was taken over is not an error.
func (l *Locker) Release(ctx context.Context, lock *Lock) error {
	if lock == nil {
		return nil
	}
	if l.redis == nil {
		return fmt.Errorf("redis client is required")
	}

	n, err := releaseScript.Run(ctx, l.redis, []string{lock.Key}, lock.Owner).Int()
	if err != nil {
		lockTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("release %s: %w", lock.Key, err)
	}

	if n == 0 {
		l.logger.Warn().Str("key", lock.Key).Msg("Run lock already expired or taken over")
		return nil
	}

	lockTotal.WithLabelValues("released").Inc()
	l.logger.Debug().
		Str("key", lock.Key).
		Dur("held", l.now().Sub(lock.AcquiredAt)).
		Msg("Run lock released")
	return nil
}
