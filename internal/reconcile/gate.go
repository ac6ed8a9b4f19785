package reconcile

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"example.com/abonos/internal/clock"
)

// Gate enforces the minimum interval between sync attempts. Claim records
// an attempt and returns true, or returns false when the previous attempt
// is younger than interval and force is not set.
type Gate interface {
	Claim(ctx context.Context, interval time.Duration, force bool) (bool, error)
}

// MemoryGate keeps the last attempt in process memory.
type MemoryGate struct {
	mu    sync.Mutex
	last  time.Time
	clock clock.Clock
}

func NewMemoryGate(c clock.Clock) *MemoryGate {
	if c == nil {
		c = clock.NewSystem()
	}
	return &MemoryGate{clock: c}
}

func (g *MemoryGate) Claim(_ context.Context, interval time.Duration, force bool) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.clock.Now()
	if !force && !g.last.IsZero() && now.Sub(g.last) < interval {
		return false, nil
	}
	g.last = now
	return true, nil
}

// RedisGate shares the last attempt between instances through a key that
// expires after the interval. The key holds the attempt time in unix
// seconds.
type RedisGate struct {
	rdb   *redis.Client
	key   string
	clock clock.Clock
}

const DefaultGateKey = "abonos:sync:last_attempt"

func NewRedisGate(rdb *redis.Client, key string, c clock.Clock) *RedisGate {
	if key == "" {
		key = DefaultGateKey
	}
	if c == nil {
		c = clock.NewSystem()
	}
	return &RedisGate{rdb: rdb, key: key, clock: c}
}

func (g *RedisGate) Claim(ctx context.Context, interval time.Duration, force bool) (bool, error) {
	stamp := strconv.FormatInt(g.clock.Now().Unix(), 10)
	if force {
		if err := g.rdb.Set(ctx, g.key, stamp, interval).Err(); err != nil {
			return false, err
		}
		return true, nil
	}
	return g.rdb.SetNX(ctx, g.key, stamp, interval).Result()
}
