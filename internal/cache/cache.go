// Package cache stores serialized chain responses for a short TTL, keyed by
// symbol|strikeGap|daysToExpiry. Backends are an in-process bigcache or a
// shared redis; both are optional and never authoritative.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Backend names accepted by New.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Cache is a byte-value TTL cache.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Settings selects and configures a backend.
type Settings struct {
	Backend   string
	TTL       time.Duration
	RedisAddr string
}

// New returns the configured backend; "none" (or empty, or a zero TTL) gives
// a Cache that always misses.
func New(ctx context.Context, s Settings) (Cache, error) {
	if s.TTL <= 0 {
		return Noop{}, nil
	}
	switch s.Backend {
	case BackendNone, "":
		return Noop{}, nil
	case BackendMemory:
		return NewMemory(ctx, s.TTL)
	case BackendRedis:
		return NewRedis(ctx, s.RedisAddr, s.TTL)
	default:
		return nil, fmt.Errorf("unknown cache backend '%s'", s.Backend)
	}
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }
func (Noop) Set(context.Context, string, []byte) error   { return nil }
func (Noop) Close() error                                { return nil }
