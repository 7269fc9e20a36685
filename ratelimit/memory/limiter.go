package memorylimiter

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Plan defines the request budget attributed to one usage key.
type Plan struct {
	Requests int
	Window   time.Duration
}

type windowState struct {
	// timestamps holds request times in Unix ms, newest last.
	timestamps []int64
}

// Limiter is an in-memory sliding-window limiter keyed by usage identifier
// key. It is intended as a single-node fallback when Redis is unavailable.
type Limiter struct {
	mu      sync.Mutex
	plans   map[string]Plan
	windows map[string]*windowState
}

// New constructs an in-memory limiter. Plans are keyed by usage key; the
// "default" entry applies to keys without their own plan.
func New(plans map[string]Plan) *Limiter {
	if plans == nil {
		plans = map[string]Plan{}
	}
	return &Limiter{
		plans:   plans,
		windows: make(map[string]*windowState),
	}
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
	_ = ctx
	if l == nil {
		return true, nil
	}
	if usageKey == "" {
		return false, fmt.Errorf("usage key required")
	}

	p := l.plan(usageKey)
	nowMs := time.Now().UnixNano() / 1e6
	windowStart := nowMs - p.Window.Milliseconds()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[usageKey]
	if !ok {
		w = &windowState{}
		l.windows[usageKey] = w
	}

	// Prune timestamps outside the window.
	ts := w.timestamps
	pruneIdx := 0
	for pruneIdx < len(ts) && ts[pruneIdx] < windowStart {
		pruneIdx++
	}
	if pruneIdx > 0 {
		ts = ts[pruneIdx:]
	}

	if len(ts) >= p.Requests {
		// Deny without recording this attempt.
		w.timestamps = ts
		if len(ts) == 0 {
			delete(l.windows, usageKey)
		}
		return false, nil
	}

	ts = append(ts, nowMs)
	w.timestamps = ts
	return true, nil
}
