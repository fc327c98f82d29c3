package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type memoryClient struct {
	c      *gocache.Cache
	prefix string
}

// NewMemory builds the in-process backend. defaultTTL == 0 keeps entries
// until explicitly deleted.
func NewMemory(prefix string, defaultTTL time.Duration) Client {
	if defaultTTL <= 0 {
		defaultTTL = gocache.NoExpiration
	}
	return &memoryClient{
		c:      gocache.New(defaultTTL, time.Minute),
		prefix: prefix,
	}
}

func (m *memoryClient) key(k string) string {
	if m.prefix == "" {
		return k
	}
	return m.prefix + ":" + k
}

func (m *memoryClient) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.c.Get(m.key(key))
	if !ok {
		return nil, ErrNotFound
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (m *memoryClient) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.c.Set(m.key(key), value, ttl)
	return nil
}

func (m *memoryClient) Delete(_ context.Context, key string) error {
	m.c.Delete(m.key(key))
	return nil
}

func (m *memoryClient) Ping(context.Context) error { return nil }

func (m *memoryClient) Close() error {
	m.c.Flush()
	return nil
}
