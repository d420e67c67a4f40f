package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Release is compare-and-delete: a holder whose lock already expired and
// was re-acquired by another instance must not delete the new lock.
const refreshUnlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// refreshLock serializes metric-cache refreshes per org across
// instances. SetNX with a random token; the TTL bounds how long a
// crashed holder can block other refreshes.
type refreshLock struct {
	client *redis.Client
	unlock *redis.Script
	ttl    time.Duration
}

func newRefreshLock(client *redis.Client, ttl time.Duration) *refreshLock {
	if client == nil {
		return nil
	}
	return &refreshLock{
		client: client,
		unlock: redis.NewScript(refreshUnlockScript),
		ttl:    ttl,
	}
}

func (l *refreshLock) key(orgID string) string {
	return fmt.Sprintf("metrics:refresh:lock:%s", orgID)
}

func (l *refreshLock) acquire(ctx context.Context, orgID string) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("refresh lock not configured")
	}
	if orgID == "" {
		return "", false, errors.New("refresh lock org is empty")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key(orgID), token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *refreshLock) release(ctx context.Context, orgID, token string) error {
	if l == nil || l.client == nil || orgID == "" || token == "" {
		return nil
	}
	return l.unlock.Run(ctx, l.client, []string{l.key(orgID)}, token).Err()
}
