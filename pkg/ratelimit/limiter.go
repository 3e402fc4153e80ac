package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimiterStore hands out one request limiter per upstream key.
type LimiterStore struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	r        rate.Limit
	burst    int
}

func NewLimiterStore(r rate.Limit, burst int) *LimiterStore {
	return &LimiterStore{
		limiters: make(map[string]*rate.Limiter),
		r:        r,
		burst:    burst,
	}
}

// NewPerMinuteLimiterStore spaces requests evenly over a minute.
func NewPerMinuteLimiterStore(requestsPerMinute int) *LimiterStore {
	if requestsPerMinute <= 0 {
		return NewLimiterStore(rate.Inf, 1)
	}
	return NewLimiterStore(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}

func (s *LimiterStore) GetLimiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limiter, exists := s.limiters[key]; exists {
		return limiter
	}
	limiter := rate.NewLimiter(s.r, s.burst)
	s.limiters[key] = limiter
	return limiter
}

// Wait blocks until the limiter for key admits one request.
func (s *LimiterStore) Wait(ctx context.Context, key string) error {
	return s.GetLimiter(key).Wait(ctx)
}
