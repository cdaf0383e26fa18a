// Package ratelimit guards the LIFF-token regeneration endpoint, which the
// concurrency model caps to 10 collision retries per clinic (spec §5);
// this adds a per-clinic request-rate ceiling on top. Grounded on
// Pascal509-Smart-Doctor-Booking-Reminder-App's rate_limiter.go, rebuilt on
// golang.org/x/time/rate instead of a hand-rolled counter.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// PerKeyLimiter hands out one token-bucket limiter per key (clinic id,
// caller ip, …), creating it lazily on first use.
type PerKeyLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

// NewPerKeyLimiter builds a limiter allowing r events per second per key,
// with burst capacity.
func NewPerKeyLimiter(r rate.Limit, burst int) *PerKeyLimiter {
	return &PerKeyLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        r,
		burst:    burst,
	}
}

// Allow reports whether an event for key may proceed right now.
func (p *PerKeyLimiter) Allow(key string) bool {
	return p.limiterFor(key).Allow()
}

func (p *PerKeyLimiter) limiterFor(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[key]
	if !ok {
		l = rate.NewLimiter(p.r, p.burst)
		p.limiters[key] = l
	}
	return l
}
