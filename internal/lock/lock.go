package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Both scripts act only while the key still carries our token, so an expired
// lease never touches a lock someone else has since taken.
const (
	releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`
	extendScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`
)

var (
	ErrNoClient   = errors.New("lock_client_not_configured")
	ErrEmptyKey   = errors.New("lock_key_empty")
	ErrInvalidTTL = errors.New("lock_ttl_invalid")
	ErrLeaseLost  = errors.New("lock_lease_lost")
)

// Locker hands out Redis leases. A nil Locker is valid and never locks.
type Locker struct {
	client  *redis.Client
	release *redis.Script
	extend  *redis.Script
}

// Lease is a held lock. It expires on its own after the TTL unless extended.
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
		client:  client,
		release: redis.NewScript(releaseScript),
		extend:  redis.NewScript(extendScript),
	}
}

// TryAcquire returns a nil lease and no error when the key is held elsewhere.
func (l *Locker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	switch {
	case l == nil || l.client == nil:
		return nil, ErrNoClient
	case key == "":
		return nil, ErrEmptyKey
	case ttl <= 0:
		return nil, ErrInvalidTTL
	}

	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !acquired {
		return nil, err
	}
	return &Lease{locker: l, key: key, token: token}, nil
}

func (l *Locker) acquire(ctx context.Context, key string, ttl time.Duration) (lease, error) {
	held, err := l.TryAcquire(ctx, key, ttl)
	if held == nil {
		return nil, err
	}
	return held, nil
}

// Extend pushes the expiry out to ttl from now. ErrLeaseLost means the key
// expired or changed hands.
func (ls *Lease) Extend(ctx context.Context, ttl time.Duration) error {
	if ls == nil || ls.locker == nil {
		return ErrLeaseLost
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	n, err := ls.locker.extend.Run(ctx, ls.locker.client, []string{ls.key}, ls.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLeaseLost
	}
	return nil
}

func (ls *Lease) Release(ctx context.Context) error {
	if ls == nil || ls.locker == nil {
		return nil
	}
	return ls.locker.release.Run(ctx, ls.locker.client, []string{ls.key}, ls.token).Err()
}
