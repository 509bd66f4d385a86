package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig controls the per-client token buckets.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig returns the built-in limits used when the
// server config does not override them.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

// clientBucket is a token bucket refilled lazily on each request.
type clientBucket struct {
	mu       sync.Mutex
	tokens   float64
	max      float64
	rate     float64
	lastSeen time.Time
}

// take refills the bucket for the time elapsed since the last request
// and spends one token. It reports whether a token was available and,
// when it was not, how many whole seconds until one will be.
func (b *clientBucket) take(now time.Time) (bool, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens += now.Sub(b.lastSeen).Seconds() * b.rate
	if b.tokens > b.max {
		b.tokens = b.max
	}
	b.lastSeen = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	if b.rate <= 0 {
		return false, 1
	}
	return false, int((1-b.tokens)/b.rate) + 1
}

type limiterStore struct {
	mu      sync.RWMutex
	buckets map[string]*clientBucket
	cfg     RateLimitConfig
	now     func() time.Time
}

func newLimiterStore(cfg RateLimitConfig) *limiterStore {
	return &limiterStore{
		buckets: make(map[string]*clientBucket),
		cfg:     cfg,
		now:     time.Now,
	}
}

func (s *limiterStore) bucketFor(key string) *clientBucket {
	s.mu.RLock()
	b, ok := s.buckets[key]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buckets[key]; ok {
		return b
	}
	b = &clientBucket{
		tokens:   float64(s.cfg.BurstSize),
		max:      float64(s.cfg.BurstSize),
		rate:     s.cfg.RequestsPerSecond,
		lastSeen: s.now(),
	}
	s.buckets[key] = b
	return b
}

// RateLimit throttles requests per client IP. Buckets start full at
// BurstSize and refill at RequestsPerSecond.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := newLimiterStore(cfg)
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			bucket := store.bucketFor(c.RealIP())
			ok, retryAfter := bucket.take(store.now())

			c.Response().Header().Set("X-RateLimit-Limit", limit)
			if !ok {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "rate limit exceeded",
				})
			}
			return next(c)
		}
	}
}
