package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenLimiter is a fixed-window budget of model tokens per refill period.
type TokenLimiter struct {
	sync.Mutex
	capacity     int
	remaining    int
	refillPeriod time.Duration
	lastRefill   time.Time
	pollInterval time.Duration
}

func NewTokenLimiter(tokensPerMinute int) *TokenLimiter {
	return NewTokenLimiterWithPeriod(tokensPerMinute, time.Minute)
}

func NewTokenLimiterWithPeriod(capacity int, period time.Duration) *TokenLimiter {
	return &TokenLimiter{
		capacity:     capacity,
		remaining:    capacity,
		refillPeriod: period,
		lastRefill:   time.Now(),
		pollInterval: 100 * time.Millisecond,
	}
}

// Wait blocks until tokens are available or ctx is done. A request larger than the whole
// capacity is clamped to capacity so it can still run after a full refill.
func (l *TokenLimiter) Wait(ctx context.Context, tokens int) error {
	if tokens > l.capacity {
		tokens = l.capacity
	}
	for {
		l.refill()

		l.Lock()
		if l.remaining >= tokens {
			l.remaining -= tokens
			l.Unlock()
			return nil
		}
		l.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.pollInterval):
		}
	}
}

func (l *TokenLimiter) refill() {
	l.Lock()
	defer l.Unlock()

	now := time.Now()
	if now.Sub(l.lastRefill) >= l.refillPeriod {
		l.remaining = l.capacity
		l.lastRefill = now
	}
}

func (l *TokenLimiter) GetRemaining() int {
	l.Lock()
	defer l.Unlock()
	return l.remaining
}

func (l *TokenLimiter) Capacity() int {
	return l.capacity
}
