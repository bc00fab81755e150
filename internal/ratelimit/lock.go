package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Every job lock lives under this prefix, e.g. feefriend:lock:overdue_sweep.
const lockPrefix = "feefriend:lock:"

// Deletes the key only while it still holds the caller's token.
const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var (
	ErrLockHeld           = errors.New("lock_held")
	ErrLockNotConfigured  = errors.New("lock_not_configured")
	errInvalidLockRequest = errors.New("invalid_lock_request")
)

// Locker hands out single-holder leases for scheduler jobs across replicas.
type Locker struct {
	client *redis.Client
	script *redis.Script
}

// Lease is one held job lock. Release is safe to call after the TTL expired.
type Lease struct {
	locker *Locker
	key    string
	token  string
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

// LockKey returns the Redis key for a job name.
func LockKey(job string) string {
	return lockPrefix + strings.TrimSpace(job)
}

// Acquire takes the lock for job, returning ErrLockHeld while another holder owns it.
func (l *Locker) Acquire(ctx context.Context, job string, ttl time.Duration) (*Lease, error) {
	if l == nil || l.client == nil {
		return nil, ErrLockNotConfigured
	}
	if strings.TrimSpace(job) == "" || ttl <= 0 {
		return nil, errInvalidLockRequest
	}

	lease := &Lease{locker: l, key: LockKey(job), token: uuid.NewString()}
	ok, err := l.client.SetNX(ctx, lease.key, lease.token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return lease, nil
}

func (l *Lease) Key() string {
	if l == nil {
		return ""
	}
	return l.key
}

func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.locker == nil {
		return nil
	}
	return l.locker.script.Run(ctx, l.locker.client, []string{l.key}, l.token).Err()
}
