package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

const keyPrefix = "jobtrack:lock:%s"

var ErrLockTimeout = errors.New("lock_timeout")

type lease interface {
	Extend(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}

// leaser returns a nil lease and no error while the key is held elsewhere.
type leaser interface {
	acquire(ctx context.Context, key string, ttl time.Duration) (lease, error)
}

// Guard serialises work per key. Inside one process a keyed semaphore is
// enough; with Redis configured the key is also held across instances and the
// lease is renewed for as long as the work runs.
type Guard struct {
	mu     sync.Mutex
	keys   map[string]*keyLock
	remote leaser

	ttl   time.Duration
	wait  time.Duration
	retry time.Duration
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

type Option func(*Guard)

// WithWait bounds how long Do waits for a busy key before ErrLockTimeout.
func WithWait(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.wait = d
		}
	}
}

// WithTTL sets the Redis lease TTL. The lease is extended every third of it.
func WithTTL(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.ttl = d
		}
	}
}

type Params struct {
	fx.In

	Redis *redis.Client `optional:"true"`
}

func NewGuard(p Params) *Guard {
	if locker := NewLocker(p.Redis); locker != nil {
		return newGuard(locker)
	}
	return newGuard(nil)
}

// NewLocalGuard returns a guard without a distributed lock.
func NewLocalGuard(opts ...Option) *Guard {
	return newGuard(nil, opts...)
}

func newGuard(remote leaser, opts ...Option) *Guard {
	g := &Guard{
		keys:   make(map[string]*keyLock),
		remote: remote,
		ttl:    10 * time.Second,
		wait:   5 * time.Second,
		retry:  50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Do runs fn while holding key. If the Redis lease is lost mid-run, fn's
// context is canceled and the error wraps ErrLeaseLost.
func (g *Guard) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	kl := g.ref(key)
	defer g.unref(key, kl)

	if err := g.lockLocal(ctx, kl); err != nil {
		return err
	}
	defer func() { <-kl.sem }()

	if g.remote == nil {
		return fn(ctx)
	}

	held, err := g.lockRemote(ctx, fmt.Sprintf(keyPrefix, key))
	if err != nil {
		return err
	}
	defer func() {
		_ = held.Release(context.WithoutCancel(ctx))
	}()

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	stop := make(chan struct{})
	renewing := make(chan struct{})
	go func() {
		defer close(renewing)
		g.keepAlive(runCtx, held, cancel, stop)
	}()

	err = fn(runCtx)
	close(stop)
	<-renewing

	if err != nil && errors.Is(context.Cause(runCtx), ErrLeaseLost) {
		return fmt.Errorf("%w: %w", ErrLeaseLost, err)
	}
	return err
}

func (g *Guard) keepAlive(ctx context.Context, held lease, cancel context.CancelCauseFunc, stop <-chan struct{}) {
	ticker := time.NewTicker(g.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := held.Extend(ctx, g.ttl); err != nil {
				if !errors.Is(err, ErrLeaseLost) {
					err = fmt.Errorf("%w: %w", ErrLeaseLost, err)
				}
				cancel(err)
				return
			}
		}
	}
}

func (g *Guard) lockLocal(ctx context.Context, kl *keyLock) error {
	select {
	case kl.sem <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(g.wait)
	defer timer.Stop()
	select {
	case kl.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrLockTimeout
	}
}

func (g *Guard) lockRemote(ctx context.Context, key string) (lease, error) {
	deadline := time.NewTimer(g.wait)
	defer deadline.Stop()
	ticker := time.NewTicker(g.retry)
	defer ticker.Stop()

	for {
		held, err := g.remote.acquire(ctx, key, g.ttl)
		if err != nil {
			return nil, err
		}
		if held != nil {
			return held, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}
}

func (g *Guard) ref(key string) *keyLock {
	g.mu.Lock()
	defer g.mu.Unlock()
	kl := g.keys[key]
	if kl == nil {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		g.keys[key] = kl
	}
	kl.refs++
	return kl
}

func (g *Guard) unref(key string, kl *keyLock) {
	g.mu.Lock()
	defer g.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(g.keys, key)
	}
}
