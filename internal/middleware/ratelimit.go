package middleware

import (
	"fmt"
	"time"

	"github.com/driftblend/api/pkg/response"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimiter throttles per-user request rates with Redis counters.
type RateLimiter struct {
	rdb *redis.Client
}

func NewRateLimiter(rdb *redis.Client) *RateLimiter {
	return &RateLimiter{rdb: rdb}
}

// Limit allows at most maxPerMinute requests per user for the named action.
// Counters live in Redis so the limit holds across instances. A Redis outage
// fails open.
func (r *RateLimiter) Limit(action string, maxPerMinute int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if maxPerMinute <= 0 {
			return c.Next()
		}

		userID := GetUserID(c)
		if userID == "" {
			userID = c.IP()
		}

		key := fmt.Sprintf("ratelimit:%s:%s:%s", action, userID, time.Now().Format("2006-01-02T15:04"))

		count, err := r.rdb.Incr(c.Context(), key).Result()
		if err != nil {
			return c.Next()
		}
		if count == 1 {
			r.rdb.Expire(c.Context(), key, time.Minute)
		}

		if count > int64(maxPerMinute) {
			return response.RateLimited(c)
		}

		return c.Next()
	}
}
