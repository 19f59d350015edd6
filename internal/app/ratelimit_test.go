package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(2, 10*time.Second)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("u1"))
	assert.True(t, rl.Allow("u1"))
	assert.False(t, rl.Allow("u1"))
	assert.True(t, rl.Allow("u2"))

	now = now.Add(11 * time.Second)
	assert.True(t, rl.Allow("u1"))
}

func TestRateLimiterSweep(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(1, time.Second)
	rl.now = func() time.Time { return now }

	rl.Allow("u1")
	now = now.Add(2 * time.Second)
	rl.Sweep()
	assert.Empty(t, rl.history)
}

func TestRateLimiterDisabled(t *testing.T) {
	var rl *RateLimiter
	assert.True(t, rl.Allow("u1"))
	assert.True(t, NewRateLimiter(0, time.Second).Allow("u1"))
	assert.True(t, Throttled("sendGift"))
	assert.False(t, Throttled("takeSeat"))
}
