package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_SerialisesSameKey(t *testing.T) {
	g := NewLocalGuard()
	var running, maxRunning int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.Do(context.Background(), "invoice:1", func(context.Context) error {
				n := atomic.AddInt32(&running, 1)
				for {
					m := atomic.LoadInt32(&maxRunning)
					if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxRunning)
	g.mu.Lock()
	defer g.mu.Unlock()
	assert.Empty(t, g.keys)
}

func TestGuard_PropagatesError(t *testing.T) {
	g := NewLocalGuard()
	want := assert.AnError

	err := g.Do(context.Background(), "k", func(context.Context) error { return want })
	require.ErrorIs(t, err, want)
}

func TestLocker_NilClient(t *testing.T) {
	var l *Locker
	lease, err := l.TryAcquire(context.Background(), "k", time.Second)
	assert.Nil(t, lease)
	assert.ErrorIs(t, err, ErrNoClient)
	assert.NoError(t, lease.Release(context.Background()))
	assert.Nil(t, NewLocker(nil))
}

type stubLeaser struct {
	mu   sync.Mutex
	held map[string]bool
	err  error

	extendErr error
	extends   atomic.Int32
	releases  atomic.Int32
}

func newStubLeaser() *stubLeaser {
	return &stubLeaser{held: map[string]bool{}}
}

func (s *stubLeaser) acquire(_ context.Context, key string, _ time.Duration) (lease, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held[key] {
		return nil, nil
	}
	s.held[key] = true
	return &stubLease{owner: s, key: key}, nil
}

type stubLease struct {
	owner *stubLeaser
	key   string
}

func (l *stubLease) Extend(context.Context, time.Duration) error {
	l.owner.extends.Add(1)
	return l.owner.extendErr
}

func (l *stubLease) Release(context.Context) error {
	l.owner.releases.Add(1)
	l.owner.mu.Lock()
	defer l.owner.mu.Unlock()
	delete(l.owner.held, l.key)
	return nil
}

func TestGuard_LocalWaitTimesOut(t *testing.T) {
	g := NewLocalGuard(WithWait(20 * time.Millisecond))
	entered := make(chan struct{})
	leave := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- g.Do(context.Background(), "k", func(context.Context) error {
			close(entered)
			<-leave
			return nil
		})
	}()
	<-entered

	called := false
	err := g.Do(context.Background(), "k", func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, called)

	close(leave)
	require.NoError(t, <-done)
}

func TestGuard_LocalWaitHonoursContext(t *testing.T) {
	g := NewLocalGuard()
	entered := make(chan struct{})
	leave := make(chan struct{})
	defer close(leave)

	go func() {
		_ = g.Do(context.Background(), "k", func(context.Context) error {
			close(entered)
			<-leave
			return nil
		})
	}()
	<-entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := g.Do(ctx, "k", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGuard_RemoteKeyHeldElsewhere(t *testing.T) {
	remote := newStubLeaser()
	remote.held["jobtrack:lock:scheduler:status_sweep"] = true
	g := newGuard(remote, WithWait(30*time.Millisecond))

	called := false
	err := g.Do(context.Background(), "scheduler:status_sweep", func(context.Context) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, called)
	assert.Equal(t, int32(0), remote.releases.Load())
}

func TestGuard_RemoteAcquireError(t *testing.T) {
	remote := newStubLeaser()
	remote.err = errors.New("redis down")
	g := newGuard(remote)

	err := g.Do(context.Background(), "k", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, remote.err)
}

func TestGuard_RenewsLeaseWhileRunning(t *testing.T) {
	remote := newStubLeaser()
	g := newGuard(remote, WithTTL(30*time.Millisecond))

	err := g.Do(context.Background(), "k", func(ctx context.Context) error {
		time.Sleep(120 * time.Millisecond)
		return ctx.Err()
	})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, remote.extends.Load(), int32(2))
	assert.Equal(t, int32(1), remote.releases.Load())
	assert.Empty(t, remote.held)
}

func TestGuard_LostLeaseCancelsWork(t *testing.T) {
	remote := newStubLeaser()
	remote.extendErr = ErrLeaseLost
	g := newGuard(remote, WithTTL(30*time.Millisecond))

	err := g.Do(context.Background(), "k", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	})

	assert.ErrorIs(t, err, ErrLeaseLost)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), remote.releases.Load())
}

func TestNewGuard_WithoutRedisIsLocal(t *testing.T) {
	g := NewGuard(Params{})
	assert.Nil(t, g.remote)
}
