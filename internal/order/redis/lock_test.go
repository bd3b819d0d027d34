package redis

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ms-lounge/internal/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a Redis client backed by miniredis
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	if err := client.Ping(context.Background()).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func newLock(client *redis.Client, ttl, wait time.Duration) *Redis {
	r := NewRedis(client, ttl, logger.NewLoggerWithWriter(io.Discard))
	r.Wait = wait
	r.interval = 5 * time.Millisecond
	return r
}

func TestAcquireAndRelease(t *testing.T) {
	client, mr := setupTestRedis(t)
	r := newLock(client, time.Minute, 50*time.Millisecond)

	release, err := r.AcquireShiftLock(context.Background())
	require.NoError(t, err)
	assert.True(t, mr.Exists(shiftLockKey))

	_, err = r.AcquireShiftLock(context.Background())
	assert.ErrorIs(t, err, ErrLockBusy)

	release()
	assert.False(t, mr.Exists(shiftLockKey))

	release2, err := r.AcquireShiftLock(context.Background())
	require.NoError(t, err)
	release2()
}

func TestReleaseDoesNotDropForeignLock(t *testing.T) {
	client, mr := setupTestRedis(t)
	r := newLock(client, time.Minute, 10*time.Millisecond)

	release, err := r.AcquireShiftLock(context.Background())
	require.NoError(t, err)

	// Simulate expiry followed by another holder taking the key.
	mr.Del(shiftLockKey)
	require.NoError(t, mr.Set(shiftLockKey, "someone-else"))

	release()
	got, err := mr.Get(shiftLockKey)
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestLockExpiresAfterTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	r := newLock(client, time.Second, 10*time.Millisecond)

	_, err := r.AcquireShiftLock(context.Background())
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	release, err := r.AcquireShiftLock(context.Background())
	require.NoError(t, err)
	release()
}

func TestAcquireHonoursContext(t *testing.T) {
	client, _ := setupTestRedis(t)
	r := newLock(client, time.Minute, time.Minute)

	release, err := r.AcquireShiftLock(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = r.AcquireShiftLock(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConcurrentHoldersAreExclusive(t *testing.T) {
	client, _ := setupTestRedis(t)
	r := newLock(client, time.Minute, 5*time.Second)

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := r.AcquireShiftLock(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}
