package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"webrecon/internal/config"
)

// HostLimiter spaces out requests against the same host during a deep crawl.
// It combines a fixed inter-request delay with an optional token bucket.
type HostLimiter struct {
	delay time.Duration
	rlCfg config.RateLimitConfig
	useRL bool

	mu       sync.Mutex
	lastHit  map[string]time.Time
	limiters map[string]*rate.Limiter
}

// NewHostLimiter builds a limiter from deep-crawl settings. A nil receiver
// and an all-zero config both behave as "no pacing".
func NewHostLimiter(delay time.Duration, rl config.RateLimitConfig) *HostLimiter {
	l := &HostLimiter{delay: delay, rlCfg: rl, useRL: rl.Enabled()}
	if l.delay > 0 || l.useRL {
		l.lastHit = make(map[string]time.Time)
	}
	if l.useRL {
		l.limiters = make(map[string]*rate.Limiter)
	}
	return l
}

// Wait blocks until the host may be hit again, or the context ends.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	if l == nil || host == "" {
		return nil
	}
	if l.delay <= 0 && !l.useRL {
		return nil
	}
	host = strings.ToLower(host)

	var pause time.Duration
	var bucket *rate.Limiter
	now := time.Now()

	l.mu.Lock()
	if l.delay > 0 {
		if prev, ok := l.lastHit[host]; ok {
			if rest := prev.Add(l.delay).Sub(now); rest > 0 {
				pause = rest
			}
		}
	}
	if l.useRL {
		bucket = l.bucketLocked(host)
	}
	l.mu.Unlock()

	if pause > 0 {
		timer := time.NewTimer(pause)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if bucket != nil {
		if err := bucket.Wait(ctx); err != nil {
			return err
		}
	}

	l.mu.Lock()
	if l.lastHit != nil {
		l.lastHit[host] = time.Now()
	}
	l.mu.Unlock()
	return nil
}

func (l *HostLimiter) bucketLocked(host string) *rate.Limiter {
	if b, ok := l.limiters[host]; ok {
		return b
	}
	interval := l.rlCfg.Window.Duration / time.Duration(l.rlCfg.Requests)
	if interval <= 0 {
		interval = time.Millisecond
	}
	b := rate.NewLimiter(rate.Every(interval), l.rlCfg.Requests)
	l.limiters[host] = b
	return b
}
