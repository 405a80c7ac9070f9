package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RateLimit 返回一个 Gin 中间件，按客户端 IP 做固定窗口限流，计数器保存在 Redis。
// keyPrefix 与其他 Redis 数据共用前缀，多个实例共享同一限额。
func RateLimit(redisClient redis.Cmdable, keyPrefix string, maxRequests int, window time.Duration) gin.HandlerFunc {
	if redisClient == nil {
		panic("Redis client cannot be nil for RateLimit middleware")
	}
	if maxRequests <= 0 {
		panic("maxRequests must be positive for RateLimit middleware")
	}
	if window <= 0 {
		panic("window duration must be positive for RateLimit middleware")
	}

	return func(c *gin.Context) {
		// 反向代理后面需要配置 gin 的 TrustedProxies 才能拿到真实 IP
		key := keyPrefix + "ratelimit:" + c.ClientIP()
		ctx := c.Request.Context()

		count, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			logrus.WithError(err).Error("RateLimit: Redis INCR failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limiting error"})
			c.Abort()
			return
		}
		// 只在窗口内第一次计数时设置过期时间，后续请求不会延长窗口
		if count == 1 {
			if err := redisClient.Expire(ctx, key, window).Err(); err != nil {
				logrus.WithError(err).Error("RateLimit: Failed to set window expiry")
			}
		}

		remaining := int64(maxRequests) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if count > int64(maxRequests) {
			logrus.WithFields(logrus.Fields{"ip": c.ClientIP(), "count": count}).Warn("RateLimit: Too many requests")
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}

		c.Next()
	}
}