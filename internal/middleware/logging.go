// Package middleware provides the HTTP middleware chain: request ids,
// structured request logging, tracing, authentication and rate limiting.
package middleware

import (
	"errors"
	"log/slog"
	"time"

	"vista/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

// Fiber locals written by this package.
const (
	LocalRequestID = "requestid"
	LocalTraceID   = "traceID"
	LocalUser      = "user"
	LocalUserID    = "userID"
)

const requestIDLength = 8

// RequestID reuses the caller's X-Request-ID or generates a short one, and
// echoes it in the response.
func RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		ContextKey: LocalRequestID,
		Generator: func() string {
			return uuid.NewString()[:requestIDLength]
		},
	})
}

// ContextMiddleware copies the request and trace ids from Fiber locals into
// the request context, where the context-aware log handler picks them up.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if rid, ok := c.Locals(LocalRequestID).(string); ok && rid != "" {
			ctx = observability.WithRequestID(ctx, rid)
		}
		if tid, ok := c.Locals(LocalTraceID).(string); ok && tid != "" {
			ctx = observability.WithTraceID(ctx, tid)
		}

		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger logs the start and the outcome of every request.
func StructuredLogger(log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		log.InfoContext(c.UserContext(), "Request started",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.String("user_agent", c.Get(fiber.HeaderUserAgent)),
		)

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			// The error handler has not run yet; report the status it will write.
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		fields := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("process_time", time.Since(start)),
		}

		if err != nil {
			fields = append(fields, slog.String("error", err.Error()))
			log.ErrorContext(c.UserContext(), "Request failed", fields...)
		} else {
			log.InfoContext(c.UserContext(), "Request completed", fields...)
		}

		return err
	}
}
