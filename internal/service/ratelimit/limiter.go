package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	lim  *rate.Limiter
	last time.Time
}

// Limiter keeps one token bucket per key. Every key shares one capacity
// and refill rate.
type Limiter struct {
	mu     sync.Mutex
	m      map[string]*entry
	burst  int
	refill rate.Limit
	now    func() time.Time
}

func New(capacity, refillPerSec float64) *Limiter {
	burst := int(capacity)
	if burst < 1 {
		burst = 1
	}
	if refillPerSec < 0 {
		refillPerSec = 0
	}
	return &Limiter{
		m:      make(map[string]*entry),
		burst:  burst,
		refill: rate.Limit(refillPerSec),
		now:    time.Now,
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.m[key]
	if !ok {
		e = &entry{lim: rate.NewLimiter(l.refill, l.burst)}
		l.m[key] = e
	}
	e.last = now
	return e.lim.AllowN(now, 1)
}

// Sweep drops keys idle for longer than idle whose bucket has refilled
// completely, so forgetting a key never hands out extra tokens. Without a
// refill rate nothing is ever dropped.
func (l *Limiter) Sweep(idle time.Duration) int {
	if l.refill <= 0 {
		return 0
	}
	now := l.now()
	cutoff := now.Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for k, e := range l.m {
		if e.last.Before(cutoff) && e.lim.TokensAt(now) >= float64(l.burst) {
			delete(l.m, k)
			n++
		}
	}
	return n
}

// Len reports how many keys are tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
