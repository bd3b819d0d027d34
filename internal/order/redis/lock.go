package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-lounge/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const shiftLockKey = "lounge:shift_lock"

// ErrLockBusy is returned when another process holds the shift lock past the wait budget.
var ErrLockBusy = errors.New("shift lock is held by another process")

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis serialises shift creation across processes with a SetNX lock.
type Redis struct {
	Client   *redis.Client
	Logger   *logger.Logger
	TTL      time.Duration
	Wait     time.Duration
	interval time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration, log *logger.Logger) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Redis{
		Client:   client,
		Logger:   log,
		TTL:      ttl,
		Wait:     ttl,
		interval: 25 * time.Millisecond,
	}
}

// AcquireShiftLock blocks until the lock is taken, ctx is done or Wait elapses.
// The returned release is safe to call once the TTL has already expired.
func (r *Redis) AcquireShiftLock(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	deadline := time.Now().Add(r.Wait)

	for {
		ok, err := r.Client.SetNX(ctx, shiftLockKey, token, r.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock error: %w", err)
		}
		if ok {
			r.Logger.Debug("REDIS", fmt.Sprintf("Shift lock acquired (token %s)", token))
			return func() { r.release(token) }, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockBusy
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.interval):
		}
	}
}

func (r *Redis) release(token string) {
	// The caller's ctx may already be cancelled; releasing must still happen.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, r.Client, []string{shiftLockKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		r.Logger.Warn("REDIS", fmt.Sprintf("Failed to release shift lock: %v", err))
	}
}
