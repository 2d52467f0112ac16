package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_BucketAndBan(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimitConfig{
		RequestsPerMinute: 60,
		BurstSize:         2,
		BanThreshold:      3,
		BanDuration:       2 * time.Minute,
		Now:               func() time.Time { return now },
	})

	assert.Equal(t, RateLimitResult{Allowed: true, Remaining: 1}, rl.Check("kid"))
	assert.Equal(t, RateLimitResult{Allowed: true, Remaining: 0}, rl.Check("kid"))

	res := rl.Check("kid")
	assert.False(t, res.Allowed)
	assert.False(t, res.Banned)
	assert.Equal(t, time.Second, res.RetryAfter)

	// another learner has its own bucket
	assert.True(t, rl.Check("friend").Allowed)

	now = now.Add(time.Second)
	assert.True(t, rl.Check("kid").Allowed)

	assert.False(t, rl.Check("kid").Allowed)
	res = rl.Check("kid")
	assert.True(t, res.Banned)
	assert.Equal(t, 2*time.Minute, res.RetryAfter)

	now = now.Add(time.Minute)
	res = rl.Check("kid")
	assert.True(t, res.Banned)
	assert.Equal(t, time.Minute, res.RetryAfter)

	now = now.Add(time.Minute)
	assert.True(t, rl.Check("kid").Allowed)
}

func TestRateLimiter_ResetAndSweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimitConfig{
		BurstSize: 1,
		IdleTTL:   time.Minute,
		Now:       func() time.Time { return now },
	})

	assert.True(t, rl.Check("kid").Allowed)
	assert.False(t, rl.Check("kid").Allowed)
	rl.Reset("kid")
	assert.True(t, rl.Check("kid").Allowed)

	rl.Check("other")
	assert.Equal(t, 2, rl.Tracked())

	now = now.Add(2 * time.Minute)
	rl.Check("fresh")
	assert.Equal(t, 1, rl.Tracked())
}
