package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitOptions configures a fixed-window limiter.
type RateLimitOptions struct {
	// Name separates the counters of different limited routes.
	Name   string
	Max    int64
	Window time.Duration
}

// RateLimit returns a middleware that allows opts.Max requests per window for each
// authenticated user, falling back to the client IP. A nil client disables it.
func RateLimit(rdb *redis.Client, opts RateLimitOptions, log *zap.Logger) gin.HandlerFunc {
	if opts.Window <= 0 {
		opts.Window = time.Second
	}
	return func(c *gin.Context) {
		if rdb == nil || opts.Max <= 0 {
			c.Next()
			return
		}

		subject := CurrentUserID(c)
		if subject == "" {
			subject = c.ClientIP()
		}
		if subject == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		window := time.Now().UnixNano() / int64(opts.Window)
		key := fmt.Sprintf("hellorun:rate_limit:%s:%s:%d", opts.Name, subject, window)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			c.Next()
			return
		}
		if count == 1 {
			rdb.PExpire(ctx, key, opts.Window+time.Second)
		}

		if count > opts.Max {
			if log != nil {
				log.Warn("rate limited",
					zap.String("limiter", opts.Name),
					zap.String("subject", subject),
					zap.String("path", c.Request.URL.Path),
				)
			}
			retry := int(opts.Window / time.Second)
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"ok":      0,
				"code":    http.StatusTooManyRequests,
				"message": "Too many requests, slow down a little.",
			})
			return
		}

		c.Next()
	}
}
