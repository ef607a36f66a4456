package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"medreport-backend/internal/shared/telemetry"
)

const (
	defaultRateLimitGroup = "DEFAULT"
	// idle principals beyond this many are evicted, which only resets their bucket
	defaultMaxLimiters = 10_000
)

// RateLimitRule is a token bucket: Rate tokens per second up to Burst.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	// GroupFor picks the rule for a request; "" falls back to DefaultGroup.
	GroupFor func(*gin.Context) string
	Limiter  *RateLimiter
}

// RateLimiter keeps one rate.Limiter per principal and group, bounded by an LRU.
type RateLimiter struct {
	limiters *lru.Cache[string, *rate.Limiter]
	now      func() time.Time
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	// only errors on a non-positive size
	cache, _ := lru.New[string, *rate.Limiter](defaultMaxLimiters)
	return &RateLimiter{limiters: cache, now: now}
}

// RateLimit rejects requests over their group's rule with 429 and Retry-After.
// The principal is the session id, or the client IP before auth has run.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = defaultRateLimitGroup
	}
	groupOf := func(c *gin.Context) string {
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				return g
			}
		}
		return cfg.DefaultGroup
	}

	return func(c *gin.Context) {
		group := groupOf(c)
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}
		principal := SessionIDFromContext(c)
		if principal == "" {
			principal = c.ClientIP()
		}

		allowed, wait := cfg.Limiter.Allow(group+"|"+principal, rule)
		if allowed {
			c.Next()
			return
		}
		retryAfterMs := max(wait.Milliseconds(), 1)
		retryAfterSec := max((retryAfterMs+999)/1000, 1)
		telemetry.Warn("http.rate_limited", map[string]any{
			"request_id":     RequestIDFromContext(c),
			"session_id":     SessionIDFromContext(c),
			"group":          group,
			"retry_after_ms": retryAfterMs,
		})
		c.Header("Retry-After", strconv.FormatInt(retryAfterSec, 10))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":        "rate_limited",
			"retryAfterMs": retryAfterMs,
		})
	}
}

// Allow takes one token for key, or reports how long until one is available.
// A denied call does not consume a token.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || rule.Rate <= 0 || rule.Burst <= 0 {
		return true, 0
	}
	now := l.now()

	lim, ok := l.limiters.Get(key)
	if !ok {
		fresh := rate.NewLimiter(rate.Limit(rule.Rate), rule.Burst)
		if prev, found, _ := l.limiters.PeekOrAdd(key, fresh); found {
			lim = prev
		} else {
			lim = fresh
		}
	}

	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}
