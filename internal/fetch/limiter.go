package fetch

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter enforces per-host politeness: a fixed minimum delay between
// requests and an optional requests-per-second token bucket.
// A nil *HostLimiter never blocks.
type HostLimiter struct {
	delay time.Duration
	rps   float64

	mu       sync.Mutex
	last     map[string]time.Time
	limiters map[string]*rate.Limiter
}

// NewHostLimiter creates a limiter. Returns nil when both delay and rps are
// zero, which disables limiting.
func NewHostLimiter(delay time.Duration, rps float64) *HostLimiter {
	if delay <= 0 && rps <= 0 {
		return nil
	}
	return &HostLimiter{
		delay:    delay,
		rps:      rps,
		last:     make(map[string]time.Time),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to host may be sent, or ctx is done.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	if l == nil || host == "" {
		return nil
	}
	host = strings.ToLower(host)

	var sleep time.Duration
	var limiter *rate.Limiter
	now := time.Now()

	l.mu.Lock()
	if l.delay > 0 {
		// Reserve the next slot before sleeping so concurrent callers for the
		// same host queue up one delay apart.
		next := now
		if last, ok := l.last[host]; ok && last.Add(l.delay).After(now) {
			next = last.Add(l.delay)
		}
		sleep = next.Sub(now)
		l.last[host] = next
	}
	if l.rps > 0 {
		limiter = l.limiterLocked(host)
	}
	l.mu.Unlock()

	if sleep > 0 {
		timer := time.NewTimer(sleep)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if limiter != nil {
		return limiter.Wait(ctx)
	}
	return nil
}

func (l *HostLimiter) limiterLocked(host string) *rate.Limiter {
	if limiter, ok := l.limiters[host]; ok {
		return limiter
	}
	burst := int(l.rps)
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(l.rps), burst)
	l.limiters[host] = limiter
	return limiter
}
