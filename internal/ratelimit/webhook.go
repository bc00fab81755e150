package ratelimit

import (
	"context"
	"strings"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/config"
)

const webhookKeyPrefix = "feefriend:ratelimit:webhook:"

// WebhookLimiter throttles inbound payment webhooks per provider.
type WebhookLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewWebhookLimiter(bucket *TokenBucket, cfg config.Config) *WebhookLimiter {
	return &WebhookLimiter{
		bucket: bucket,
		rate:   cfg.WebhookRateLimit,
		burst:  cfg.WebhookRateBurst,
	}
}

// Enabled reports whether a Redis bucket and a positive rate are configured.
func (l *WebhookLimiter) Enabled() bool {
	return l != nil && l.bucket != nil && l.rate > 0 && l.burst > 0
}

func (l *WebhookLimiter) Allow(ctx context.Context, provider string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, WebhookKey(provider), l.rate, l.burst)
}

func WebhookKey(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = "default"
	}
	return webhookKeyPrefix + provider
}
