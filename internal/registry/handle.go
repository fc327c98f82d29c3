package registry

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/staffdeck/staffdeck/internal/tenant"
)

// DB is the minimal surface a tenant pool must expose to the registry.
type DB interface {
	Ping(ctx context.Context) error
	Close() error
}

// Handle wraps one physical pool for one target. At most one live Handle
// exists per tenant code per process; a broken one is evicted and the next
// demand re-creates it from scratch.
type Handle struct {
	code   string
	target tenant.Target
	db     DB

	live     atomic.Bool
	brokenFn func(*Handle)
	once     sync.Once
}

func newHandle(code string, target tenant.Target, db DB, onBroken func(*Handle)) *Handle {
	h := &Handle{code: code, target: target, db: db, brokenFn: onBroken}
	h.live.Store(true)
	return h
}

func (h *Handle) Code() string          { return h.code }
func (h *Handle) Target() tenant.Target { return h.target }
func (h *Handle) Live() bool            { return h.live.Load() }

// DB exposes the pool for query execution by the business layer.
func (h *Handle) DB() DB { return h.db }

// Pgx returns the underlying pgx pool when the handle was opened by the
// default opener, nil otherwise (test doubles).
func (h *Handle) Pgx() *pgxpool.Pool {
	if p, ok := h.db.(interface{ Pool() *pgxpool.Pool }); ok {
		return p.Pool()
	}
	return nil
}

// Ping round-trips the pool. A failed ping marks the handle broken, which
// evicts it from the registry.
func (h *Handle) Ping(ctx context.Context) error {
	if err := h.db.Ping(ctx); err != nil {
		h.MarkBroken()
		return err
	}
	return nil
}

// MarkBroken flips the live flag and fires the eviction callback exactly
// once. Safe to call from any goroutine, including pool error paths.
func (h *Handle) MarkBroken() {
	h.live.Store(false)
	h.once.Do(func() {
		if h.brokenFn != nil {
			h.brokenFn(h)
		}
	})
}

func (h *Handle) close() error {
	h.live.Store(false)
	return h.db.Close()
}
