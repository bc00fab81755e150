package server

import (
	"math"
	"strconv"
	"strings"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultWebhookProvider = "default"

// WebhookRateLimit throttles payment webhooks per provider with the Redis token bucket.
// Limiter errors fail open.
func (s *Server) WebhookRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.webhookLimiter == nil || !s.webhookLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		provider := webhookProvider(c)
		result, err := s.webhookLimiter.Allow(ctx, provider)
		if err != nil {
			logger.FromContext(ctx).Warn("webhook rate limit check failed",
				zap.String("provider", provider),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			logger.FromContext(ctx).Warn("webhook rate limit exceeded",
				zap.String("provider", provider),
				zap.String("endpoint", normalizeRateLimitEndpoint(c)),
			)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			AbortWithError(c, ErrRateLimited)
			return
		}

		c.Next()
	}
}

func webhookProvider(c *gin.Context) string {
	provider := strings.ToLower(strings.TrimSpace(c.Param("provider")))
	if provider == "" {
		return defaultWebhookProvider
	}
	return provider
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
