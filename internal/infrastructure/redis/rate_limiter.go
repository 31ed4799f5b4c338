package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/stockmaster-api/internal/application/ports"
)

var _ ports.RateLimiter = (*RateLimiter)(nil)

// RateLimiter ventana deslizante sobre un sorted set por clave (score = instante en ns).
type RateLimiter struct {
	rdb         goredis.UniversalClient
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// NewRateLimiter permite maxRequests por clave dentro de window.
func NewRateLimiter(rdb goredis.UniversalClient, maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{rdb: rdb, maxRequests: maxRequests, window: window, now: time.Now}
}

// Allow cuenta la solicitud solo si queda cupo; si no, devuelve cuánto falta para que salga la más antigua.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := "ratelimit:" + key
	now := rl.now()
	windowStart := now.Add(-rl.window)

	pipe := rl.rdb.Pipeline()
	pipe.ZRemRangeByScore(ctx, k, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, k)
	oldestCmd := pipe.ZRangeWithScores(ctx, k, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", key, err)
	}

	if countCmd.Val() >= int64(rl.maxRequests) {
		retry := rl.window
		if oldest := oldestCmd.Val(); len(oldest) > 0 {
			retry = time.Unix(0, int64(oldest[0].Score)).Add(rl.window).Sub(now)
		}
		return false, retry, nil
	}

	pipe = rl.rdb.TxPipeline()
	pipe.ZAdd(ctx, k, goredis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})
	pipe.Expire(ctx, k, rl.window+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return true, 0, nil
}
