// Package rate provides the per-host courtesy throttle. Fetches to any
// one external host pass through a token bucket so the crawler keeps a
// polite steady-state request rate without literal sleeps.
package rate

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type PerHost struct {
	mu         sync.Mutex
	m          map[string]*limitEntry
	perSecond  float64
	burst      int
	maxEntries int
}

type limitEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// New creates a per-host limiter with the given steady rate and burst.
func New(perSecond float64, burst int) *PerHost {
	ph := &PerHost{
		m:          make(map[string]*limitEntry),
		perSecond:  perSecond,
		burst:      burst,
		maxEntries: 10000,
	}
	go ph.cleanup()
	return ph
}

func (p *PerHost) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		p.mu.Lock()
		if len(p.m) > p.maxEntries {
			cutoff := time.Now().Add(-1 * time.Hour)
			for host, entry := range p.m {
				if entry.lastUsed.Before(cutoff) {
					delete(p.m, host)
				}
			}
		}
		p.mu.Unlock()
	}
}

func (p *PerHost) entry(host string) *limitEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.m[host]
	if !ok {
		e = &limitEntry{limiter: rate.NewLimiter(rate.Limit(p.perSecond), p.burst)}
		p.m[host] = e
	}
	e.lastUsed = time.Now()
	return e
}

// Allow reports whether a request to host may proceed immediately.
func (p *PerHost) Allow(host string) bool {
	return p.entry(host).limiter.Allow()
}

// Wait blocks until a token is available for host or ctx is done.
func (p *PerHost) Wait(ctx context.Context, host string) error {
	return p.entry(host).limiter.Wait(ctx)
}
