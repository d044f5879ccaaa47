package api

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/gensyn-ai/rl-swarm/pkg/utils"
)

// RateLimiterConfig holds rate limiter configuration
type RateLimiterConfig struct {
	RequestsPerMinute int
	Burst             int

	// MaxClients bounds how many client buckets are tracked at once;
	// idle buckets expire after IdleTTL.
	MaxClients int
	IdleTTL    time.Duration

	Logger *utils.Logger
}

const (
	defaultMaxClients    = 8192
	defaultBucketIdleTTL = 10 * time.Minute
)

// RateLimiter implements per-client token bucket rate limiting. Buckets
// live in a TTL-bounded LRU so an open endpoint cannot grow the map
// without limit.
type RateLimiter struct {
	config  RateLimiterConfig
	buckets *expirable.LRU[string, *tokenBucket]
	mu      sync.Mutex
}

// tokenBucket tracks one client's remaining budget
type tokenBucket struct {
	tokens   float64
	lastTime time.Time
	capacity float64
	refill   float64 // tokens per second
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.MaxClients <= 0 {
		config.MaxClients = defaultMaxClients
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = defaultBucketIdleTTL
	}
	return &RateLimiter{
		config:  config,
		buckets: expirable.NewLRU[string, *tokenBucket](config.MaxClients, nil, config.IdleTTL),
	}
}

// Allow checks if a request is allowed and returns the bucket reset time
func (rl *RateLimiter) Allow(clientID string) (bool, int64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	bucket, exists := rl.buckets.Get(clientID)
	if !exists {
		capacity := float64(rl.config.RequestsPerMinute)
		if rl.config.Burst > 0 {
			capacity += float64(rl.config.Burst)
		}
		bucket = &tokenBucket{
			tokens:   capacity,
			lastTime: now,
			capacity: capacity,
			refill:   float64(rl.config.RequestsPerMinute) / 60.0,
		}
		rl.buckets.Add(clientID, bucket)
	}

	// Refill based on elapsed time
	elapsed := now.Sub(bucket.lastTime).Seconds()
	bucket.tokens += elapsed * bucket.refill
	if bucket.tokens > bucket.capacity {
		bucket.tokens = bucket.capacity
	}
	bucket.lastTime = now

	if bucket.tokens >= 1.0 {
		bucket.tokens -= 1.0
		secondsUntilFull := (bucket.capacity - bucket.tokens) / bucket.refill
		return true, now.Add(time.Duration(secondsUntilFull) * time.Second).Unix()
	}

	secondsUntilToken := (1.0 - bucket.tokens) / bucket.refill
	return false, now.Add(time.Duration(secondsUntilToken) * time.Second).Unix()
}

// GetMetrics returns rate limiter metrics
func (rl *RateLimiter) GetMetrics() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]interface{}{
		"tracked_clients":     rl.buckets.Len(),
		"requests_per_minute": rl.config.RequestsPerMinute,
		"burst":               rl.config.Burst,
	}
}
