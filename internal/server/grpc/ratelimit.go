package grpcserver

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type limiterEntry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

// limiterPool is a per-key token bucket pool. Entries idle for longer than
// ttl are swept on access, at most once per sweepEvery.
type limiterPool struct {
	mu         sync.Mutex
	m          map[string]*limiterEntry
	rps        rate.Limit
	burst      int
	ttl        time.Duration
	sweepEvery time.Duration
	lastSweep  time.Time
	now        func() time.Time
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	if rps <= 0 {
		rps = 20
	}
	if burst <= 0 {
		burst = 40
	}
	return &limiterPool{
		m:          make(map[string]*limiterEntry),
		rps:        rate.Limit(rps),
		burst:      burst,
		ttl:        10 * time.Minute,
		sweepEvery: time.Minute,
		now:        time.Now,
	}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if now.Sub(p.lastSweep) >= p.sweepEvery {
		cutoff := now.Add(-p.ttl)
		for k, e := range p.m {
			if e.lastSeen.Before(cutoff) {
				delete(p.m, k)
			}
		}
		p.lastSweep = now
	}

	if e, ok := p.m[key]; ok {
		e.lastSeen = now
		return e.l
	}
	l := rate.NewLimiter(p.rps, p.burst)
	p.m[key] = &limiterEntry{l: l, lastSeen: now}
	return l
}

// Allow reports whether key may make one more call now.
func (p *limiterPool) Allow(key string) bool {
	return p.get(key).AllowN(p.now(), 1)
}

func (p *limiterPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}
