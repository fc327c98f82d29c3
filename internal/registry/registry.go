// Package registry keeps one live pooled connection per active tenant,
// created on demand from control-directory records and discarded on failure.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/staffdeck/staffdeck/internal/metrics"
	"github.com/staffdeck/staffdeck/internal/observability/logger"
	"github.com/staffdeck/staffdeck/internal/tenant"
)

// Resolver is the registry's view of the control directory.
type Resolver interface {
	Resolve(ctx context.Context, code string) (*tenant.Record, error)
	Close()
}

// OpenFunc opens a pool for a resolved tenant record. Injectable for tests.
type OpenFunc func(ctx context.Context, rec *tenant.Record) (DB, error)

// PoolConfig bounds every per-tenant pool.
type PoolConfig struct {
	MaxConns        int
	MinConns        int
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
}

func (p PoolConfig) withDefaults() PoolConfig {
	if p.MaxConns <= 0 {
		p.MaxConns = 10
	}
	if p.ConnMaxIdleTime <= 0 {
		p.ConnMaxIdleTime = 5 * time.Minute
	}
	if p.ConnectTimeout <= 0 {
		p.ConnectTimeout = 5 * time.Second
	}
	return p
}

// Config customizes a Registry.
type Config struct {
	Directory Resolver // required
	Open      OpenFunc // default: pgx opener (openTenantPool)
	Pool      PoolConfig
}

// Registry owns the map of tenant handles. Creation is single-flight per
// tenant code; reads of a live handle take only the read lock. Operations on
// distinct codes never contend beyond that lock.
type Registry struct {
	dir     Resolver
	open    OpenFunc
	poolCfg PoolConfig

	mu      sync.RWMutex
	handles map[string]*Handle

	sf singleflight.Group
}

// New builds a Registry.
func New(cfg Config) (*Registry, error) {
	if cfg.Directory == nil {
		return nil, fmt.Errorf("registry: directory is required")
	}
	r := &Registry{
		dir:     cfg.Directory,
		poolCfg: cfg.Pool.withDefaults(),
		handles: make(map[string]*Handle),
	}
	r.open = cfg.Open
	if r.open == nil {
		r.open = func(ctx context.Context, rec *tenant.Record) (DB, error) {
			return openTenantPool(ctx, rec, r.poolCfg)
		}
	}
	return r, nil
}

// GetOrCreate returns the live handle for a tenant, creating it if needed.
//
// Concurrent calls for the same cold tenant coalesce into exactly one
// connection-opening attempt; every caller observes the same handle or the
// same error. A failed attempt leaves the registry exactly as it was.
func (r *Registry) GetOrCreate(ctx context.Context, code string) (*Handle, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, tenant.ErrNotFound
	}

	if h := r.lookupLive(code); h != nil {
		return h, nil
	}

	v, err, _ := r.sf.Do(code, func() (any, error) {
		// A previous flight may have finished between lookup and Do.
		if h := r.lookupLive(code); h != nil {
			return h, nil
		}

		rec, err := r.dir.Resolve(ctx, code)
		if err != nil {
			return nil, err
		}

		// Creation is detached from the caller: if the request is cancelled
		// mid-open, the pool still lands in the registry for the next caller.
		start := time.Now()
		db, err := r.open(context.WithoutCancel(ctx), rec)
		metrics.PoolOpenDuration.Observe(float64(time.Since(start).Milliseconds()))
		if err != nil {
			metrics.PoolOpens.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("%w: tenant %s: %w", tenant.ErrConnectFailed, code, err)
		}
		metrics.PoolOpens.WithLabelValues("ok").Inc()

		h := newHandle(code, rec.Target(), db, func(broken *Handle) {
			r.evict(code, broken)
		})

		r.mu.Lock()
		r.handles[code] = h
		r.mu.Unlock()
		metrics.ActivePools.Inc()

		logger.L().Info("tenant pool ready",
			logger.Component("registry"),
			logger.TenantCode(code),
			logger.DBHost(rec.DBHost),
			logger.DBName(rec.DBName),
		)
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

// lookupLive returns the current handle when it is live; a stale one is
// removed on the spot so the caller falls through to creation.
func (r *Registry) lookupLive(code string) *Handle {
	r.mu.RLock()
	h, ok := r.handles[code]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	if h.Live() {
		return h
	}
	r.evict(code, h)
	return nil
}

// evict removes a specific handle, tolerating the case where a fresh one
// already replaced it.
func (r *Registry) evict(code string, stale *Handle) {
	r.mu.Lock()
	if cur, ok := r.handles[code]; ok && cur == stale {
		delete(r.handles, code)
		metrics.ActivePools.Dec()
	}
	r.mu.Unlock()
}

// IsHealthy reports whether the tenant's database answers a trivial round
// trip. It never returns an error: any failure, including creation failure,
// is false. A failed ping marks the handle broken so the next demand
// re-creates it.
func (r *Registry) IsHealthy(ctx context.Context, code string) bool {
	h, err := r.GetOrCreate(ctx, code)
	if err != nil {
		return false
	}
	return h.Ping(ctx) == nil
}

// Close closes and removes one tenant's handle. Tolerant of "not present"
// and "already closed".
func (r *Registry) Close(code string) {
	code = strings.TrimSpace(code)
	r.mu.Lock()
	h, ok := r.handles[code]
	if ok {
		delete(r.handles, code)
		metrics.ActivePools.Dec()
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	if err := h.close(); err != nil {
		logger.L().Warn("tenant pool close failed",
			logger.Component("registry"),
			logger.TenantCode(code),
			logger.Err(err),
		)
	}
}

// CloseAll closes every tenant handle and then the control pool. Individual
// failures are logged and never abort the sweep. Used at graceful shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]*Handle)
	r.mu.Unlock()

	for code, h := range handles {
		if err := h.close(); err != nil {
			logger.L().Warn("tenant pool close failed",
				logger.Component("registry"),
				logger.TenantCode(code),
				logger.Err(err),
			)
		}
		metrics.ActivePools.Dec()
	}
	r.dir.Close()
}

// PoolCount returns the number of registered handles.
func (r *Registry) PoolCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// PoolStat is a snapshot of one tenant pool.
type PoolStat struct {
	Code     string `json:"code"`
	Live     bool   `json:"live"`
	Acquired int32  `json:"acquired"`
	Idle     int32  `json:"idle"`
	Total    int32  `json:"total"`
}

// Stats snapshots every registered pool, for the admin surface.
func (r *Registry) Stats() []PoolStat {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]PoolStat, 0, len(r.handles))
	for code, h := range r.handles {
		st := PoolStat{Code: code, Live: h.Live()}
		if p := h.Pgx(); p != nil {
			s := p.Stat()
			st.Acquired = s.AcquiredConns()
			st.Idle = s.IdleConns()
			st.Total = s.TotalConns()
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
