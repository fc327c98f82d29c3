// Package cache abstracts the tenant-record cache behind a small multi-backend
// client: in-process memory (default, single node) or redis (shared across
// nodes, so an Invalidate on one node is seen by all).
package cache

import (
	"context"
	"time"
)

// Client is the record-cache contract used by the control directory.
type Client interface {
	// Get returns the cached value. ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value. ttl == 0 means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Absent keys are not an error.
	Delete(ctx context.Context, key string) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver   string // "memory" | "redis"
	Addr     string // redis host:port
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration // default entry TTL; 0 = keep until invalidated
}

var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "cache: key not found" }

// IsNotFound reports whether err means the key was absent.
func IsNotFound(err error) bool {
	_, ok := err.(errNotFound)
	return ok
}

// New builds a client for the configured driver. Unknown drivers fall back
// to memory so a typo in config degrades instead of breaking startup.
func New(cfg Config) (Client, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedis(cfg)
	default:
		return NewMemory(cfg.Prefix, cfg.TTL), nil
	}
}
