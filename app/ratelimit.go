package app

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimit 固定窗口计数：INCR + 首次 EXPIRE；按操作员，未登录时按 IP
func RateLimit(rdb *redis.Client, name string, limit int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 || window <= 0 {
			c.Next()
			return
		}
		who := c.GetString(CtxUserID)
		if who == "" {
			who = c.ClientIP()
		}
		secs := int64(window / time.Second)
		if secs < 1 {
			secs = 1
		}
		bucket := time.Now().Unix() / secs
		key := fmt.Sprintf("guests:ratelimit:%s:%s:%d", name, who, bucket)

		n, err := rdb.Incr(c, key).Result()
		if err != nil {
			// Redis 故障时放行
			log.Printf("[ratelimit] %s: %v", key, err)
			c.Next()
			return
		}
		if n == 1 {
			rdb.Expire(c, key, window)
		}
		c.Header("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
		if n > limit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, H{"status": "error", "message": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
