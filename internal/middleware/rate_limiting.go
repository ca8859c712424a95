package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"firmsite/internal/config"
)

// RateLimitMiddleware limits the request rate per client IP. Static assets,
// health checks and metrics scrapes are not counted.
func RateLimitMiddleware(cfg *config.Config, manager *RateLimitManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if manager == nil || shouldBypassRateLimit(c.Request) {
			c.Next()
			return
		}

		limiter := manager.GetVisitor(c.ClientIP(), cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.RateLimitBurst)
		if limiter != nil && !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}

// LoginRateLimitMiddleware throttles the admin login steps, which each
// trigger a backend auth call or an OTP email.
func LoginRateLimitMiddleware(cfg *config.Config, manager *RateLimitManager) gin.HandlerFunc {
	windowSeconds := cfg.RateLimitWindow
	if windowSeconds <= 0 {
		windowSeconds = 60
	}

	return func(c *gin.Context) {
		if manager == nil || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		limiter := manager.GetLoginLimiter(c.ClientIP(), cfg.LoginRateLimitRequests, windowSeconds)
		if limiter != nil && !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":          "too many login attempts",
				"retry_after":    windowSeconds,
				"max_requests":   cfg.LoginRateLimitRequests,
				"window_seconds": windowSeconds,
			})
			return
		}
		c.Next()
	}
}

func shouldBypassRateLimit(r *http.Request) bool {
	if r == nil || r.URL == nil {
		return false
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}

	path := r.URL.Path
	if strings.HasPrefix(path, "/static/") {
		return true
	}
	switch path {
	case "/favicon.ico", "/health", "/metrics":
		return true
	}
	return false
}
