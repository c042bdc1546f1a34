package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Suhaibinator/SDispatch/pkg/common"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitStrategy selects how clients are identified.
type RateLimitStrategy string

const (
	// StrategyIP keys on the client IP (the client_ip field when present).
	StrategyIP RateLimitStrategy = "ip"
	// StrategyUser keys on UserKey(fields), falling back to the client IP.
	StrategyUser RateLimitStrategy = "user"
	// StrategyCustom keys on KeyExtractor.
	StrategyCustom RateLimitStrategy = "custom"
)

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Unique identifier for this rate limit bucket.
	// Routes sharing a BucketName share the same quota.
	BucketName string

	// Maximum number of requests allowed in the time window
	Limit int

	// Time window for the rate limit (e.g., 1 minute, 1 hour)
	Window time.Duration

	// Strategy for identifying clients, StrategyIP when empty
	Strategy RateLimitStrategy

	// UserKey derives the key for StrategyUser from earlier fields
	UserKey func(fields common.Fields) string

	// KeyExtractor derives the key for StrategyCustom
	KeyExtractor func(r *http.Request, fields common.Fields) (string, error)

	// ExceededHandler writes the response when the limit is exceeded, which
	// ends the dispatch. If nil, a 429 HTTPError is returned instead.
	ExceededHandler http.Handler
}

// RateLimiter defines the interface for rate limiting algorithms
type RateLimiter interface {
	// Allow reports whether a request for key fits within limit per window,
	// along with the remaining quota and the time until it refills.
	Allow(key string, limit int, window time.Duration) (bool, int, time.Duration)
}

// TokenBucketRateLimiter implements RateLimiter with one token bucket per key.
// Each bucket holds Limit tokens and refills at Limit per Window.
type TokenBucketRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewTokenBucketRateLimiter creates an empty TokenBucketRateLimiter.
func NewTokenBucketRateLimiter() *TokenBucketRateLimiter {
	return &TokenBucketRateLimiter{visitors: make(map[string]*visitor)}
}

// Allow implements RateLimiter.
func (l *TokenBucketRateLimiter) Allow(key string, limit int, window time.Duration) (bool, int, time.Duration) {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	every := window / time.Duration(limit)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(every), limit)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	allowed := v.limiter.AllowN(now, 1)
	tokens := v.limiter.TokensAt(now)

	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}

	// Time until one full token is available again
	var reset time.Duration
	if tokens < 1 {
		reset = time.Duration((1 - tokens) * float64(every))
	}

	return allowed, remaining, reset
}

// Cleanup drops buckets not used for longer than maxIdle and returns how many
// were removed.
func (l *TokenBucketRateLimiter) Cleanup(maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, v := range l.visitors {
		if time.Since(v.lastSeen) > maxIdle {
			delete(l.visitors, key)
			removed++
		}
	}
	return removed
}

// RateLimit creates a middleware that enforces rate limits.
// It sets X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset on
// every response, and Retry-After when the limit is exceeded.
func RateLimit(config *RateLimitConfig, limiter RateLimiter, logger *zap.Logger) common.Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(w http.ResponseWriter, r *http.Request, fields common.Fields) (common.Fields, error) {
		if config == nil {
			return nil, nil
		}

		key, err := rateLimitKey(config, r, fields)
		if err != nil {
			return nil, fmt.Errorf("extract rate limit key: %w", err)
		}

		allowed, remaining, reset := limiter.Allow(config.BucketName+":"+key, config.Limit, config.Window)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(reset).Unix(), 10))

		if allowed {
			return nil, nil
		}

		retryAfter := int64(reset / time.Second)
		if reset%time.Second != 0 {
			retryAfter++
		}
		w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))

		logger.Warn("Rate limit exceeded",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("key", key),
			zap.Int("limit", config.Limit),
		)

		if config.ExceededHandler != nil {
			config.ExceededHandler.ServeHTTP(w, r)
			return nil, nil
		}
		return nil, common.NewHTTPError(http.StatusTooManyRequests, "Too Many Requests")
	}
}

func rateLimitKey(config *RateLimitConfig, r *http.Request, fields common.Fields) (string, error) {
	switch config.Strategy {
	case StrategyUser:
		if config.UserKey != nil {
			if key := config.UserKey(fields); key != "" {
				return key, nil
			}
		}
	case StrategyCustom:
		if config.KeyExtractor != nil {
			return config.KeyExtractor(r, fields)
		}
	}

	if ip := ClientIPFrom(fields); ip != "" {
		return ip, nil
	}
	return ExtractClientIP(r, DefaultIPConfig()), nil
}

// Pace returns a middleware that spaces requests out to at most rps per
// second across the whole route, using a leaky bucket. Unlike RateLimit it
// never rejects: it suspends the chain until the request's slot comes up.
func Pace(rps int, opts ...ratelimit.Option) common.Middleware {
	if rps <= 0 {
		rps = 1
	}
	limiter := ratelimit.New(rps, opts...)

	return func(_ http.ResponseWriter, _ *http.Request, _ common.Fields) (common.Fields, error) {
		limiter.Take()
		return nil, nil
	}
}
