// Package middleware contains Telegram bot middlewares for request processing.
package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER MIDDLEWARE
// Per-user token bucket. A user who accidentally double-taps a quick-add
// button is fine, a user who floods the chat gets a short notice.
// ══════════════════════════════════════════════════════════════════════════════

// RateLimitConfig holds configuration for the rate limiter.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained rate per user.
	RequestsPerMinute int

	// BurstSize is the bucket size.
	BurstSize int

	// IdleTTL is how long an idle user's bucket is kept.
	IdleTTL time.Duration

	// WhitelistedUsers are exempt from limiting.
	WhitelistedUsers map[string]bool

	// Now is the time source (defaults to time.Now).
	Now func() time.Time
}

// DefaultRateLimitConfig returns sensible defaults for rate limiting.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 20,
		BurstSize:         5,
		IdleTTL:           10 * time.Minute,
		WhitelistedUsers:  make(map[string]bool),
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements per-user rate limiting.
type RateLimiter struct {
	config RateLimitConfig

	mu       sync.Mutex
	visitors map[string]*visitor
}

// NewRateLimiter creates a new rate limiter with the given configuration.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	defaults := DefaultRateLimitConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = defaults.RequestsPerMinute
	}
	if config.BurstSize <= 0 {
		config.BurstSize = defaults.BurstSize
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = defaults.IdleTTL
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &RateLimiter{
		config:   config,
		visitors: make(map[string]*visitor),
	}
}

// RateLimitResult represents the result of a rate limit check.
type RateLimitResult struct {
	// Allowed indicates if the request is allowed.
	Allowed bool

	// RetryAfter is how long the user should wait before the next token.
	RetryAfter time.Duration
}

// Check consumes one token for the user.
func (rl *RateLimiter) Check(userID string) RateLimitResult {
	if rl.config.WhitelistedUsers[userID] {
		return RateLimitResult{Allowed: true}
	}

	now := rl.config.Now()
	limiter := rl.getLimiter(userID, now)
	if limiter.AllowN(now, 1) {
		return RateLimitResult{Allowed: true}
	}

	r := limiter.ReserveN(now, 1)
	retryAfter := r.DelayFrom(now)
	r.CancelAt(now)
	return RateLimitResult{Allowed: false, RetryAfter: retryAfter}
}

func (rl *RateLimiter) getLimiter(userID string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[userID]
	if !ok {
		perSecond := rate.Limit(float64(rl.config.RequestsPerMinute) / 60)
		v = &visitor{limiter: rate.NewLimiter(perSecond, rl.config.BurstSize)}
		rl.visitors[userID] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Reset forgets the user's bucket.
func (rl *RateLimiter) Reset(userID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.visitors, userID)
}

// Cleanup drops buckets idle for longer than IdleTTL and returns how many
// were removed.
func (rl *RateLimiter) Cleanup() int {
	now := rl.config.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for id, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.config.IdleTTL {
			delete(rl.visitors, id)
			removed++
		}
	}
	return removed
}

// Tracked returns the number of users with a live bucket.
func (rl *RateLimiter) Tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}
