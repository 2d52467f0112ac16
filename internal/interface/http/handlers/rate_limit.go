package handlers

import (
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// WRITE RATE LIMITER
// Per-learner token bucket for endpoints that change progress. A child
// tapping "claim points" a few times is fine; a script hammering the API
// gets 429 and, after repeated violations, a short timeout.
// ══════════════════════════════════════════════════════════════════════════════

// RateLimitConfig configures a RateLimiter.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained refill rate per learner.
	RequestsPerMinute int

	// BurstSize is the bucket capacity.
	BurstSize int

	// BanThreshold is the number of rejected requests within ViolationWindow
	// after which the learner is blocked for BanDuration. 0 disables bans.
	BanThreshold    int
	ViolationWindow time.Duration
	BanDuration     time.Duration

	// IdleTTL drops buckets of learners not seen for this long.
	IdleTTL time.Duration

	// Now is the time source (default time.Now).
	Now func() time.Time
}

// DefaultRateLimitConfig returns defaults suited to a classroom of learners.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 60,
		BurstSize:         10,
		BanThreshold:      20,
		ViolationWindow:   5 * time.Minute,
		BanDuration:       2 * time.Minute,
		IdleTTL:           10 * time.Minute,
		Now:               time.Now,
	}
}

// RateLimitResult is the outcome of one check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	Banned     bool
}

// RateLimiter limits requests per learner ID. Safe for concurrent use.
type RateLimiter struct {
	config RateLimitConfig

	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	lastSweep time.Time
}

type tokenBucket struct {
	tokens       float64
	lastRefill   time.Time
	violations   int
	lastViolated time.Time
	bannedUntil  time.Time
}

// NewRateLimiter creates a limiter. Zero fields fall back to defaults.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	defaults := DefaultRateLimitConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = defaults.RequestsPerMinute
	}
	if config.BurstSize <= 0 {
		config.BurstSize = defaults.BurstSize
	}
	if config.ViolationWindow <= 0 {
		config.ViolationWindow = defaults.ViolationWindow
	}
	if config.BanDuration <= 0 {
		config.BanDuration = defaults.BanDuration
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = defaults.IdleTTL
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &RateLimiter{
		config:    config,
		buckets:   make(map[string]*tokenBucket),
		lastSweep: config.Now(),
	}
}

// Check consumes one token of the learner's bucket.
func (rl *RateLimiter) Check(learnerID string) RateLimitResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.config.Now()
	rl.sweepLocked(now)

	b, ok := rl.buckets[learnerID]
	if !ok {
		b = &tokenBucket{tokens: float64(rl.config.BurstSize), lastRefill: now}
		rl.buckets[learnerID] = b
	}

	if now.Before(b.bannedUntil) {
		return RateLimitResult{RetryAfter: b.bannedUntil.Sub(now), Banned: true}
	}

	rate := float64(rl.config.RequestsPerMinute) / 60.0
	b.tokens += now.Sub(b.lastRefill).Seconds() * rate
	if b.tokens > float64(rl.config.BurstSize) {
		b.tokens = float64(rl.config.BurstSize)
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return RateLimitResult{Allowed: true, Remaining: int(b.tokens)}
	}

	if now.Sub(b.lastViolated) > rl.config.ViolationWindow {
		b.violations = 0
	}
	b.violations++
	b.lastViolated = now

	if rl.config.BanThreshold > 0 && b.violations >= rl.config.BanThreshold {
		b.bannedUntil = now.Add(rl.config.BanDuration)
		b.violations = 0
		return RateLimitResult{RetryAfter: rl.config.BanDuration, Banned: true}
	}

	deficit := 1 - b.tokens
	return RateLimitResult{RetryAfter: time.Duration(deficit / rate * float64(time.Second))}
}

// Reset forgets a learner's bucket and ban.
func (rl *RateLimiter) Reset(learnerID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, learnerID)
}

// Tracked returns the number of learners with a live bucket.
func (rl *RateLimiter) Tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// sweepLocked drops idle buckets at most once per IdleTTL.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.config.IdleTTL {
		return
	}
	rl.lastSweep = now
	for id, b := range rl.buckets {
		if now.Sub(b.lastRefill) > rl.config.IdleTTL && !now.Before(b.bannedUntil) {
			delete(rl.buckets, id)
		}
	}
}
