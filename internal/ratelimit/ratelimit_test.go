package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/config"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilLockerRefusesToLock(t *testing.T) {
	var l *Locker

	lease, err := l.Acquire(context.Background(), "overdue_sweep", time.Second)
	assert.Nil(t, lease)
	assert.ErrorIs(t, err, ErrLockNotConfigured)

	var nilLease *Lease
	assert.NoError(t, nilLease.Release(context.Background()))
	assert.Empty(t, nilLease.Key())
}

func TestAcquireRejectsBadRequests(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })
	l := NewLocker(client)

	_, err := l.Acquire(context.Background(), " ", time.Second)
	assert.ErrorIs(t, err, errInvalidLockRequest)
	_, err = l.Acquire(context.Background(), "overdue_sweep", 0)
	assert.ErrorIs(t, err, errInvalidLockRequest)
}

func TestLockKeyNamespacesJobs(t *testing.T) {
	assert.Equal(t, "feefriend:lock:overdue_sweep", LockKey(" overdue_sweep "))
}

func TestNewLockerWithoutClient(t *testing.T) {
	assert.Nil(t, NewLocker(nil))
	assert.Nil(t, NewTokenBucket(nil))
}

func TestWebhookLimiterAllowsWhenDisabled(t *testing.T) {
	limiter := NewWebhookLimiter(nil, config.Config{WebhookRateLimit: 5, WebhookRateBurst: 10})
	require.False(t, limiter.Enabled())

	res, err := limiter.Allow(context.Background(), "bml")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestWebhookKeyNormalizesProvider(t *testing.T) {
	assert.Equal(t, "feefriend:ratelimit:webhook:bml", WebhookKey(" BML "))
	assert.Equal(t, "feefriend:ratelimit:webhook:default", WebhookKey(""))
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, time.Second, defaultBucketTTL(0, 10))
	assert.Equal(t, 4*time.Second, defaultBucketTTL(5, 10))
}

func TestCastHelpers(t *testing.T) {
	assert.Equal(t, int64(3), castToInt(float64(3.9)))
	assert.Equal(t, int64(0), castToInt("x"))
	assert.Equal(t, 2.5, castToFloat("2.5"))
	assert.Equal(t, float64(7), castToFloat(int64(7)))
}
