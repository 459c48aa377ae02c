package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"vista/internal/models"
	"vista/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// CodeRateLimited is the error code of 429 responses.
const CodeRateLimited = "RATE_LIMITED"

// maxLocalLimiters bounds the in-process fallback table before idle entries
// are pruned.
const maxLocalLimiters = 10000

type localLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter enforces fixed-window request limits in Redis. When Redis is not
// configured or fails, an in-process token bucket per caller takes over.
type Limiter struct {
	rdb    *redis.Client
	bypass bool
	log    *slog.Logger

	mu    sync.Mutex
	local map[string]*localLimiter
	now   func() time.Time
}

// NewLimiter returns a Limiter. Rate limiting is disabled in the test,
// development and stress environments so local workflows are not throttled.
func NewLimiter(rdb *redis.Client, env string, log *slog.Logger) *Limiter {
	bypass := false
	switch env {
	case "", "test", "development", "stress":
		bypass = true
	}
	return &Limiter{
		rdb:    rdb,
		bypass: bypass,
		log:    log,
		local:  make(map[string]*localLimiter),
		now:    time.Now,
	}
}

// Bypassed reports whether limits are disabled for this environment.
func (l *Limiter) Bypassed() bool {
	return l.bypass
}

// Allow reports whether caller id may perform another request on resource.
func (l *Limiter) Allow(ctx context.Context, resource, id string, limit int, window time.Duration) bool {
	if l.bypass || limit <= 0 {
		return true
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)
	if l.rdb != nil {
		allowed, err := l.allowRedis(ctx, key, limit, window)
		if err == nil {
			return allowed
		}
		l.log.WarnContext(ctx, "Rate limit store unavailable, using local limiter",
			slog.String("resource", resource),
			slog.String("error", err.Error()),
		)
	}
	return l.allowLocal(key, limit, window)
}

func (l *Limiter) allowRedis(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	cnt, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		if err := l.rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return cnt <= int64(limit), nil
}

func (l *Limiter) allowLocal(key string, limit int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.local[key]
	if !ok {
		if len(l.local) >= maxLocalLimiters {
			l.prune(now, window)
		}
		entry = &localLimiter{
			limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit),
		}
		l.local[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (l *Limiter) prune(now time.Time, idle time.Duration) {
	for key, entry := range l.local {
		if now.Sub(entry.lastSeen) > idle {
			delete(l.local, key)
		}
	}
}

// Handler returns a middleware allowing limit requests per window for each
// caller, keyed by the authenticated user id or else the client IP.
func (l *Limiter) Handler(resource string, limit int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id string
		if uid, ok := c.Locals(LocalUserID).(string); ok && uid != "" {
			id = "user:" + uid
		} else {
			id = "ip:" + c.IP()
		}

		if !l.Allow(c.UserContext(), resource, id, limit, window) {
			observability.RateLimited.WithLabelValues(resource).Inc()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Rate limit exceeded",
				Code:  CodeRateLimited,
			})
		}
		return c.Next()
	}
}
