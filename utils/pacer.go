package utils

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a minimum interval between successive outbound calls.
// The enrichment passes are strictly sequential loops against rate-limited
// or abuse-sensitive endpoints, so pacing replaces any form of fan-out.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewPacer creates a Pacer with the given minimum interval.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval}
}

// Wait blocks until at least the configured interval has passed since the
// previous call. It returns early if ctx is cancelled while waiting.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	now := time.Now()
	remaining := p.interval - now.Sub(p.last)
	if remaining <= 0 {
		p.last = now
		p.mu.Unlock()
		return ctx.Err()
	}
	// Reserve the slot up front so a concurrent caller queues behind it.
	p.last = now.Add(remaining)
	p.mu.Unlock()

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		// The reserved slot was never used; release it.
		p.mu.Lock()
		if p.last.After(time.Now()) {
			p.last = p.last.Add(-p.interval)
		}
		p.mu.Unlock()
		return ctx.Err()
	}
}
