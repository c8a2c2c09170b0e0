package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRPS allows one request every two seconds.
const DefaultRPS = 0.5

// Limiter spaces outbound calls at least 1/rps apart. It holds a single token,
// so concurrent acquirers are released one at a time in reservation order and
// never burst through together.
type Limiter struct {
	l        *rate.Limiter
	interval time.Duration
}

// New creates a limiter allowing up to rps acquisitions per second.
func New(rps float64) *Limiter {
	if rps <= 0 {
		rps = DefaultRPS
	}
	return &Limiter{
		l:        rate.NewLimiter(rate.Limit(rps), 1),
		interval: time.Duration(float64(time.Second) / rps),
	}
}

// Acquire blocks until the caller may proceed or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil || l.l == nil {
		return nil
	}
	return l.l.Wait(ctx)
}

// Interval is the minimum spacing between two granted acquisitions.
func (l *Limiter) Interval() time.Duration {
	if l == nil {
		return 0
	}
	return l.interval
}
