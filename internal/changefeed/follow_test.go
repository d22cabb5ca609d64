package changefeed

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func recv[T any](t *testing.T, ch <-chan *T) (*T, bool) {
	t.Helper()
	select {
	case v, ok := <-ch:
		return v, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
		return nil, false
	}
}

func TestFollow_EmitsInitialThenReloads(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var version int64
	load := func(context.Context) (*int64, error) {
		v := atomic.LoadInt64(&version)
		return &v, nil
	}

	ch, err := Follow(ctx, hub, TopicInvoices, zap.NewNop(), load)
	require.NoError(t, err)

	v, ok := recv(t, ch)
	require.True(t, ok)
	assert.Equal(t, int64(0), *v)

	atomic.StoreInt64(&version, 1)
	hub.Notify(OpUpsert, "1", TopicInvoices)

	v, ok = recv(t, ch)
	require.True(t, ok)
	assert.Equal(t, int64(1), *v)

	cancel()
	_, ok = recv(t, ch)
	assert.False(t, ok)
}

func TestFollow_NilEndsStream(t *testing.T) {
	hub := NewHub()
	var gone atomic.Bool
	load := func(context.Context) (*string, error) {
		if gone.Load() {
			return nil, nil
		}
		s := "here"
		return &s, nil
	}

	ch, err := Follow(context.Background(), hub, TopicJobs, zap.NewNop(), load)
	require.NoError(t, err)

	v, _ := recv(t, ch)
	require.NotNil(t, v)

	gone.Store(true)
	hub.Notify(OpDelete, "1", TopicJobs)

	v, ok := recv(t, ch)
	assert.True(t, ok)
	assert.Nil(t, v)

	_, ok = recv(t, ch)
	assert.False(t, ok)
	assert.Eventually(t, func() bool { return hub.Subscribers(TopicJobs) == 0 }, time.Second, 10*time.Millisecond)
}

func TestFollow_InitialErrorUnsubscribes(t *testing.T) {
	hub := NewHub()
	_, err := Follow(context.Background(), hub, TopicJobs, zap.NewNop(), func(context.Context) (*int, error) {
		return nil, assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, hub.Subscribers(TopicJobs))
}
