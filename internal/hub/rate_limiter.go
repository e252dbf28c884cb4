package hub

import (
	"sync"
	"time"
)

// tokenBucket throttles inbound messages per connection. Tokens refill
// continuously at burst-per-interval; a message costs one token.
type tokenBucket struct {
	mu        sync.Mutex
	tokens    float64
	capacity  float64
	rate      float64
	lastCheck time.Time
}

func newTokenBucket(burst int, interval time.Duration) *tokenBucket {
	if burst <= 0 {
		burst = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	rate := float64(burst) / interval.Seconds()
	if rate <= 0 {
		rate = float64(burst)
	}

	return &tokenBucket{
		tokens:    float64(burst),
		capacity:  float64(burst),
		rate:      rate,
		lastCheck: time.Now(),
	}
}

func (b *tokenBucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastCheck).Seconds()
	b.lastCheck = now

	if elapsed > 0 {
		b.tokens += elapsed * b.rate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
	}

	if b.tokens < 1 {
		return false
	}

	b.tokens--
	return true
}
