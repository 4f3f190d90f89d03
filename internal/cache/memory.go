package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

const stampLen = 8

// Memory is an in-process cache on bigcache. bigcache only evicts on its
// clean window, so each entry carries its own expiry stamp and Get refuses
// stale entries.
type Memory struct {
	cache *bigcache.BigCache
	ttl   time.Duration
	now   func() time.Time
}

// NewMemory creates an in-process cache whose entries live for ttl.
func NewMemory(ctx context.Context, ttl time.Duration) (*Memory, error) {
	cfg := bigcache.DefaultConfig(ttl)
	cfg.Shards = 64
	cfg.CleanWindow = ttl
	cfg.HardMaxCacheSize = 64 // MB
	cfg.Verbose = false

	bc, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init memory cache: %w", err)
	}
	return &Memory{cache: bc, ttl: ttl, now: time.Now}, nil
}

// Get returns the value for key or ErrMiss.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	entry, err := m.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	if len(entry) < stampLen {
		_ = m.cache.Delete(key)
		return nil, ErrMiss
	}

	expires := int64(binary.BigEndian.Uint64(entry[:stampLen]))
	if m.now().UnixNano() >= expires {
		_ = m.cache.Delete(key)
		return nil, ErrMiss
	}
	return entry[stampLen:], nil
}

// Set stores value for the configured TTL.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	entry := make([]byte, stampLen+len(value))
	binary.BigEndian.PutUint64(entry, uint64(m.now().Add(m.ttl).UnixNano()))
	copy(entry[stampLen:], value)
	return m.cache.Set(key, entry)
}

// Close stops bigcache's cleanup goroutine.
func (m *Memory) Close() error {
	return m.cache.Close()
}
