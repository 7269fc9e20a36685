package redislimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Plan defines the request budget attributed to one usage key.
type Plan struct {
	Requests int
	Window   time.Duration
}

// Limiter is a Redis-backed sliding window limiter using ZSETs, keyed by
// usage identifier key so the budget is shared across instances.
type Limiter struct {
	rdb   *redis.Client
	keyNS string
	plans map[string]Plan
}

// New constructs a Redis-backed limiter. Plans are keyed by usage key; the
// "default" entry applies to keys without their own plan.
func New(rdb *redis.Client, plans map[string]Plan) *Limiter {
	if plans == nil {
		plans = map[string]Plan{}
	}
	return &Limiter{rdb: rdb, keyNS: "gatekit:usage:", plans: plans}
}

func (l *Limiter) plan(usageKey string) Plan {
	if p, ok := l.plans[usageKey]; ok {
		return p
	}
	if p, ok := l.plans["default"]; ok {
		return p
	}
	return Plan{Requests: 100, Window: time.Minute}
}

// Allow records one request against the usage key's plan and reports
// whether it fits the window.
func (l *Limiter) Allow(ctx context.Context, usageKey string) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}
	if usageKey == "" {
		return false, fmt.Errorf("usage key required")
	}
	p := l.plan(usageKey)
	now := time.Now().UnixNano() / 1e6 // ms
	start := now - p.Window.Milliseconds()
	zkey := l.keyNS + usageKey

	pipe := l.rdb.TxPipeline()
	pipe.ZAdd(ctx, zkey, redis.Z{Score: float64(now), Member: now})
	pipe.ZRemRangeByScore(ctx, zkey, "0", fmt.Sprintf("%d", start))
	countCmd := pipe.ZCard(ctx, zkey)
	pipe.Expire(ctx, zkey, p.Window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	count, err := countCmd.Result()
	if err != nil {
		return false, err
	}
	if count > int64(p.Requests) {
		l.rdb.ZRem(ctx, zkey, now)
		return false, nil
	}
	return true, nil
}
