package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/flowdeck/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimit returns a middleware enforcing a fixed-window rate limit.
// Authenticated requests are counted per user, anonymous ones per IP.
func RateLimit(rdb *redis.Client, max int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := CurrentUserID(c)
		if subject == "" {
			subject = c.ClientIP()
		}
		if subject == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		windowKey := time.Now().UnixMilli() / window.Milliseconds()
		key := fmt.Sprintf("fd:rate_limit:%s:%d", subject, windowKey)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			// redis down should not take the API with it
			c.Next()
			return
		}
		if count == 1 {
			rdb.PExpire(ctx, key, window+time.Second)
		}

		if count > max {
			c.Header("Retry-After", strconv.Itoa(int(window/time.Second)+1))
			response.TooManyRequests(c, "rate limit exceeded, slow down")
			return
		}

		c.Next()
	}
}
