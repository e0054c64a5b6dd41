package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config stores KeyedLimiter settings.
type Config struct {
	Rate       float64       // requests per second per key
	Burst      int           // requests a fresh key may make at once
	TTL        time.Duration // idle keys are forgotten after TTL, 0 keeps them
	MaxBuckets int           // tracked keys limit, 0 is unbounded; unknown keys are denied when full
}

// KeyedLimiter keeps one token bucket per key.
type KeyedLimiter struct {
	cfg   Config
	clock Clock

	mu        sync.Mutex
	buckets   map[string]*keyState
	nextSweep time.Time
}

type keyState struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewKeyedLimiter creates a limiter reading time from clock.
func NewKeyedLimiter(clock Clock, cfg Config) *KeyedLimiter {
	if clock == nil {
		clock = RealClock{}
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MaxBuckets < 0 {
		cfg.MaxBuckets = 0
	}
	return &KeyedLimiter{
		cfg:     cfg,
		clock:   clock,
		buckets: make(map[string]*keyState),
	}
}

// Allow takes one token from the bucket of key.
func (l *KeyedLimiter) Allow(key string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	l.evictIdle(now)
	st, ok := l.buckets[key]
	if !ok {
		if l.cfg.MaxBuckets > 0 && len(l.buckets) >= l.cfg.MaxBuckets {
			l.mu.Unlock()
			return false
		}
		st = &keyState{lim: rate.NewLimiter(rate.Limit(l.cfg.Rate), l.cfg.Burst)}
		l.buckets[key] = st
	}
	st.seen = now
	l.mu.Unlock()

	return st.lim.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// evictIdle runs at most once per max(TTL/2, 1m). Caller holds l.mu.
func (l *KeyedLimiter) evictIdle(now time.Time) {
	if l.cfg.TTL <= 0 || now.Before(l.nextSweep) {
		return
	}
	interval := max(l.cfg.TTL/2, time.Minute)
	l.nextSweep = now.Add(interval)

	for k, st := range l.buckets {
		if now.Sub(st.seen) > l.cfg.TTL {
			delete(l.buckets, k)
		}
	}
}
