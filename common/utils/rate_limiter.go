package utils

import (
	"sync"
	"time"
)

// RateLimiter is a token bucket. rate tokens are added per second up to
// capacity; Allow consumes one token when available.
type RateLimiter struct {
	rate       float64
	capacity   float64
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a limiter sustaining rate requests per second with
// room for burst extra requests on top.
func NewRateLimiter(rate int, burst int) *RateLimiter {
	capacity := float64(rate + burst)
	return &RateLimiter{
		rate:       float64(rate),
		capacity:   capacity,
		tokens:     capacity,
		lastRefill: time.Now(),
	}
}

// Allow reports whether the request may pass.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()

	if rl.tokens < rl.capacity {
		rl.tokens = min(rl.capacity, rl.tokens+elapsed*rl.rate)
	}
	rl.lastRefill = now

	if rl.tokens >= 1.0 {
		rl.tokens -= 1.0
		return true
	}
	return false
}
