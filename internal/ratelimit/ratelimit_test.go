package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lightningshop/jobtrack/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBucket struct {
	keys   []string
	result Result
	err    error
}

func (f *fakeBucket) Allow(_ context.Context, key string, _ float64, _ int) (Result, error) {
	f.keys = append(f.keys, key)
	return f.result, f.err
}

func TestNewAPILimiter_DisabledWithoutRedis(t *testing.T) {
	cfg := config.Config{RateLimit: config.RateLimitConfig{Enabled: true, Rate: 1, Burst: 1}}

	limiter, err := NewAPILimiter(Params{Config: cfg})
	require.NoError(t, err)
	assert.Nil(t, limiter)
	assert.False(t, limiter.Enabled())

	res, err := limiter.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestAPILimiter_KeysByClient(t *testing.T) {
	bucket := &fakeBucket{result: Result{Allowed: false, Limit: 5}}
	limiter := &APILimiter{bucket: bucket, rate: 1, burst: 5}

	res, err := limiter.Allow(context.Background(), " 10.0.0.1 ")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	_, err = limiter.Allow(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"jobtrack:ratelimit:api:10.0.0.1", "jobtrack:ratelimit:api:unknown"}, bucket.keys)
}

func TestAPILimiter_PropagatesBucketError(t *testing.T) {
	boom := errors.New("boom")
	limiter := &APILimiter{bucket: &fakeBucket{err: boom}, rate: 1, burst: 1}

	_, err := limiter.Allow(context.Background(), "client")
	assert.ErrorIs(t, err, boom)
}

func TestTokenBucket_NilClient(t *testing.T) {
	assert.Nil(t, NewTokenBucket(nil))

	var bucket *TokenBucket
	_, err := bucket.Allow(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestBucketResult(t *testing.T) {
	denied := bucketResult(false, 0, 2, 10)
	assert.False(t, denied.Allowed)
	assert.Equal(t, 10, denied.Limit)
	assert.Equal(t, 0, denied.Remaining)
	assert.Equal(t, 500*time.Millisecond, denied.RetryAfter)

	allowed := bucketResult(true, 7, 2, 10)
	assert.Equal(t, 7, allowed.Remaining)
	assert.Zero(t, allowed.RetryAfter)
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 20*time.Second, bucketTTL(1, 10))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
	assert.Equal(t, time.Second, bucketTTL(0, 1))
}
