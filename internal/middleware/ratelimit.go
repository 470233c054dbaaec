package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/adpilot/backend/internal/http/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitMiddleware is a fixed-window counter per client and route pattern.
// It fails open when Redis is unavailable. Requests that passed
// AuthMiddleware are keyed by user, anonymous ones by IP.
//
// Attach it to individual routes, after auth. Under app.Use or Group the
// matched route is the mount prefix, so every route would share one bucket.
func RateLimitMiddleware(rdb *redis.Client, limit int, window time.Duration, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limit <= 0 {
			return c.Next()
		}
		client := c.IP()
		if id := GetUserID(c); id != uuid.Nil {
			client = id.String()
		}
		key := fmt.Sprintf("rl:%s:%s:%s", c.Method(), c.Route().Path, client)

		ctx := c.UserContext()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Debug("rate limit unavailable", zap.Error(err))
			return c.Next()
		}
		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		if count > int64(limit) {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Error:     "rate limit exceeded",
				RequestID: GetRequestID(c),
			})
		}

		return c.Next()
	}
}
