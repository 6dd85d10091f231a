// Package ratelimit throttles clients per endpoint with token buckets.
package ratelimit

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// tokenBucket allows capacity requests at once and refills at a steady rate.
type tokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
}

func newTokenBucket(capacity int, refillRate float64, now time.Time) *tokenBucket {
	return &tokenBucket{
		capacity:   float64(capacity),
		refillRate: refillRate,
		tokens:     float64(capacity),
		lastRefill: now,
	}
}

func (tb *tokenBucket) refill(now time.Time) {
	if elapsed := now.Sub(tb.lastRefill); elapsed > 0 {
		tb.tokens = min(tb.capacity, tb.tokens+elapsed.Seconds()*tb.refillRate)
		tb.lastRefill = now
	}
}

// take consumes a token if one is available and reports the bucket state.
func (tb *tokenBucket) take(now time.Time) (allowed bool, remaining int, resetAt time.Time) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(now)
	if tb.tokens >= 1 {
		tb.tokens--
		allowed = true
	}

	resetAt = now
	if missing := tb.capacity - tb.tokens; missing > 0 {
		resetAt = now.Add(time.Duration(missing / tb.refillRate * float64(time.Second)))
	}
	return allowed, int(tb.tokens), resetAt
}

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Limiter manages rate limiting for multiple clients. Buckets live in a
// go-cache with sliding expiry, so idle clients are evicted by its janitor.
type Limiter struct {
	config  *Config
	mu      sync.Mutex
	buckets *cache.Cache
	now     func() time.Time
}

// NewLimiter creates a limiter. A nil config disables limiting.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{}
	}
	ttl := config.IdleTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Limiter{
		config:  config,
		buckets: cache.New(ttl, ttl/2),
		now:     time.Now,
	}
}

// Allow checks whether a request from clientID to path is allowed and
// consumes a token when it is.
func (l *Limiter) Allow(clientID, path, method string) Info {
	if !l.config.Enabled {
		return Info{Allowed: true}
	}

	rule := MatchRule(path, method, l.config.Rules)
	if rule == nil {
		rule = &Rule{Path: "*", Method: "*", Limit: l.config.DefaultLimit, Window: l.config.DefaultWindow}
	}
	if rule.Limit <= 0 || rule.Window <= 0 {
		return Info{Allowed: true}
	}

	now := l.now()
	key := clientID + " " + rule.Method + " " + rule.Path
	allowed, remaining, resetAt := l.bucket(key, rule, now).take(now)

	info := Info{
		Allowed:   allowed,
		Limit:     rule.Limit,
		Remaining: remaining,
		ResetTime: resetAt,
	}
	if !allowed {
		info.RetryAfter = max(0, resetAt.Sub(now))
	}
	return info
}

// bucket returns the bucket for key, creating it on first use and
// refreshing its idle expiry on every access.
func (l *Limiter) bucket(key string, rule *Rule, now time.Time) *tokenBucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.buckets.Get(key); ok {
		b := v.(*tokenBucket)
		l.buckets.SetDefault(key, b)
		return b
	}

	capacity := rule.Burst
	if capacity <= 0 {
		capacity = rule.Limit
	}
	b := newTokenBucket(capacity, float64(rule.Limit)/rule.Window.Seconds(), now)
	l.buckets.SetDefault(key, b)
	return b
}

// Len returns the number of live buckets.
func (l *Limiter) Len() int {
	return l.buckets.ItemCount()
}
