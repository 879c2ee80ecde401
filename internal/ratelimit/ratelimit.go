// Package ratelimit provides admission-control counters keyed by
// (bucket, key). The Limiter interface is injectable so tests can substitute
// small windows or a permissive stub, and a multi-instance deployment can
// swap in a shared store.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Bucket names, one per endpoint family. Each carries its own independent
// counters.
const (
	BucketAPI           = "api"
	BucketLoginEmailIP  = "login:email_ip"
	BucketLoginIP       = "login:ip"
	BucketForgotEmail   = "forgot:email"
	BucketForgotEmailIP = "forgot:email_ip"
	BucketResetToken    = "reset:token"
	BucketResetIP       = "reset:ip"
)

// Rule defines how many events a single key may perform per window in a
// bucket.
type Rule struct {
	Bucket string
	Events int
	Window time.Duration
}

// DefaultRules returns the production limiter configuration.
func DefaultRules() []Rule {
	return []Rule{
		{Bucket: BucketAPI, Events: 120, Window: time.Minute},
		{Bucket: BucketLoginEmailIP, Events: 5, Window: time.Minute},
		{Bucket: BucketLoginIP, Events: 20, Window: time.Minute},
		{Bucket: BucketForgotEmail, Events: 3, Window: 15 * time.Minute},
		{Bucket: BucketForgotEmailIP, Events: 30, Window: time.Hour},
		{Bucket: BucketResetToken, Events: 5, Window: 10 * time.Minute},
		{Bucket: BucketResetIP, Events: 50, Window: time.Hour},
	}
}

// Limiter decides whether an event for a key in a bucket is admitted.
type Limiter interface {
	Allow(bucket, key string) bool
}

// MemoryLimiter is an in-process Limiter backed by token buckets. A key's
// limiter is created lazily with a burst equal to the rule's event count, so
// a fresh key may perform the full allowance immediately and the 1-over
// event is rejected.
type MemoryLimiter struct {
	mu       sync.Mutex
	rules    map[string]Rule
	limiters map[string]*rate.Limiter
}

// NewMemoryLimiter creates a MemoryLimiter enforcing the given rules.
// Buckets without a rule are unlimited.
func NewMemoryLimiter(rules ...Rule) *MemoryLimiter {
	byBucket := make(map[string]Rule, len(rules))
	for _, r := range rules {
		byBucket[r.Bucket] = r
	}
	return &MemoryLimiter{
		rules:    byBucket,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether the event is within the bucket's allowance for key.
func (l *MemoryLimiter) Allow(bucket, key string) bool {
	rule, ok := l.rules[bucket]
	if !ok {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	id := bucket + "\x00" + key
	lim, exists := l.limiters[id]
	if !exists {
		lim = rate.NewLimiter(rate.Every(rule.Window/time.Duration(rule.Events)), rule.Events)
		l.limiters[id] = lim
	}
	return lim.Allow()
}

// Cleanup drops all tracked keys once the map grows past a size threshold.
// Token buckets refill on their own, so dropping state only ever grants a
// fresh allowance.
func (l *MemoryLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.limiters) > 100000 {
		l.limiters = make(map[string]*rate.Limiter)
	}
}

// StartCleanup starts a background goroutine that periodically calls Cleanup.
func (l *MemoryLimiter) StartCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			l.Cleanup()
		}
	}()
}

// Unlimited is a Limiter that admits everything. Useful in tests.
type Unlimited struct{}

// Allow always returns true.
func (Unlimited) Allow(string, string) bool { return true }
