package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/lightningshop/jobtrack/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

const keyAPIClient = "jobtrack:ratelimit:api:%s"

type allower interface {
	Allow(ctx context.Context, key string, rate float64, burst int) (Result, error)
}

// APILimiter throttles API calls per client. It needs Redis; without it, or
// when disabled, every call is allowed.
type APILimiter struct {
	bucket allower
	rate   float64
	burst  int
}

type Params struct {
	fx.In

	Config config.Config
	Redis  *redis.Client `optional:"true"`
}

func NewAPILimiter(p Params) (*APILimiter, error) {
	cfg := p.Config.RateLimit
	if !cfg.Enabled || p.Redis == nil {
		return nil, nil
	}
	if cfg.Rate <= 0 || cfg.Burst <= 0 {
		return nil, ErrInvalidLimit
	}
	return &APILimiter{
		bucket: NewTokenBucket(p.Redis),
		rate:   cfg.Rate,
		burst:  cfg.Burst,
	}, nil
}

func (l *APILimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *APILimiter) Allow(ctx context.Context, client string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	client = strings.TrimSpace(client)
	if client == "" {
		client = "unknown"
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyAPIClient, client), l.rate, l.burst)
}
