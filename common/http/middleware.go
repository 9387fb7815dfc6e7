package http

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/janryu/janryu/common/log"
	"github.com/janryu/janryu/common/utils"
)

// accessLog runs at the gin layer so it can observe the final status and
// latency after the handler chain. MiddlewareFunc runs before the chain
// and cannot.
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if status >= 500 {
			log.Warn("http %s %s -> %d in %v from %s", c.Request.Method, c.Request.URL.Path, status, time.Since(start), c.ClientIP())
			return
		}
		log.Debug("http %s %s -> %d in %v", c.Request.Method, c.Request.URL.Path, status, time.Since(start))
	}
}

// WithAccessLog logs every request through common/log instead of gin's own
// writer.
func WithAccessLog() ServerOption {
	return func(s *HttpServer) {
		s.engine.Use(accessLog())
	}
}

func CorsMiddleware() MiddlewareFunc {
	return func(c *Context) error {
		origin := c.GetHeader("Origin")

		if origin != "" {
			c.SetHeader("Access-Control-Allow-Origin", "*")
			c.SetHeader("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			c.SetHeader("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization")
			c.SetHeader("Access-Control-Expose-Headers", "Content-Length, Content-Type")
		}

		if c.Method() == "OPTIONS" {
			c.AbortWithStatus(204)
			return nil
		}

		return nil
	}
}

// RateLimitMiddleware bounds each client IP to rate requests per second
// with burst headroom. Buckets live in memory per process; a multi-node
// deployment would need them in redis.
func RateLimitMiddleware(rate, burst int) MiddlewareFunc {
	var mu sync.Mutex
	buckets := make(map[string]*utils.RateLimiter)

	return func(c *Context) error {
		ip := c.ClientIP()

		mu.Lock()
		limiter, ok := buckets[ip]
		if !ok {
			limiter = utils.NewRateLimiter(rate, burst)
			buckets[ip] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			c.JSON(429, NewResponse(CodeError, "too many requests", nil))
			c.Abort()
		}
		return nil
	}
}

// RequestIDMiddleware tags each request so lobby log lines can be tied to
// one call. Honors an inbound X-Request-ID from a proxy.
func RequestIDMiddleware() MiddlewareFunc {
	return func(c *Context) error {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set("requestID", requestID)
		c.SetHeader("X-Request-ID", requestID)

		return nil
	}
}

func SecurityMiddleware() MiddlewareFunc {
	return func(c *Context) error {
		c.SetHeader("X-Content-Type-Options", "nosniff")
		c.SetHeader("X-Frame-Options", "DENY")
		return nil
	}
}
