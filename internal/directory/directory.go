// Package directory is the single source of truth for "how do I reach tenant
// X's database". It owns the control-store pool and the tenant-record cache;
// no other component opens control connections or touches the cache directly.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	cachepkg "github.com/staffdeck/staffdeck/internal/cache"
	"github.com/staffdeck/staffdeck/internal/config"
	"github.com/staffdeck/staffdeck/internal/metrics"
	"github.com/staffdeck/staffdeck/internal/observability/logger"
	"github.com/staffdeck/staffdeck/internal/store/control"
	"github.com/staffdeck/staffdeck/internal/tenant"
)

// ControlStore is the directory's view of the control database.
// *control.Store is the production implementation; tests inject fakes.
type ControlStore interface {
	TenantByCode(ctx context.Context, code string) (*tenant.Record, error)
	CodeByID(ctx context.Context, id string) (string, error)
	ListActive(ctx context.Context) ([]tenant.Record, error)
	Ping(ctx context.Context) error
	Close()
}

// OpenFunc opens a control store from a DSN. Injectable for tests.
type OpenFunc func(ctx context.Context, dsn string) (ControlStore, error)

// Config customizes a Directory. Zero values get production defaults.
type Config struct {
	Open           OpenFunc        // default: pgx-backed control.Open
	Cache          cachepkg.Client // default: in-process memory
	CacheTTL       time.Duration   // 0 = cache until Invalidate
	MaxConns       int
	ConnectTimeout time.Duration

	// DescriptorFromEnv resolves the control DSN. Defaults to reading
	// CONTROL_DB_URL; injectable so tests control the environment surface.
	DescriptorFromEnv func() (*config.ControlDSN, error)
}

// Directory resolves tenant codes to connection records, caching them, and
// lazily owns the one control pool of the process.
type Directory struct {
	open     OpenFunc
	cache    cachepkg.Client
	ttl      time.Duration
	descrEnv func() (*config.ControlDSN, error)

	mu    sync.RWMutex
	store ControlStore

	sf singleflight.Group
}

// New builds a Directory.
func New(cfg Config) *Directory {
	open := cfg.Open
	if open == nil {
		ctl := control.Config{MaxConns: cfg.MaxConns, ConnectTimeout: cfg.ConnectTimeout}
		if ctl.ConnectTimeout <= 0 {
			ctl.ConnectTimeout = 5 * time.Second
		}
		open = func(ctx context.Context, dsn string) (ControlStore, error) {
			return control.Open(ctx, dsn, ctl)
		}
	}
	c := cfg.Cache
	if c == nil {
		c = cachepkg.NewMemory("tenant", cfg.CacheTTL)
	}
	descr := cfg.DescriptorFromEnv
	if descr == nil {
		descr = config.ControlDSNFromEnv
	}
	return &Directory{
		open:     open,
		cache:    c,
		ttl:      cfg.CacheTTL,
		descrEnv: descr,
	}
}

// EnsureControl returns the live control store, opening it on first use.
// Idempotent and single-flight: concurrent first calls share one attempt.
// A failed attempt leaves no state behind, so the next call retries from
// scratch; a missing descriptor surfaces tenant.ErrConfigMissing.
func (d *Directory) EnsureControl(ctx context.Context) (ControlStore, error) {
	d.mu.RLock()
	if s := d.store; s != nil {
		d.mu.RUnlock()
		return s, nil
	}
	d.mu.RUnlock()

	v, err, _ := d.sf.Do("control", func() (any, error) {
		// Re-check: another flight may have won between RUnlock and Do.
		d.mu.RLock()
		s := d.store
		d.mu.RUnlock()
		if s != nil {
			return s, nil
		}

		dsn, err := d.descrEnv()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", tenant.ErrConfigMissing, err)
		}

		// Opening is detached from the triggering request: a caller that
		// gives up must not abort the pool the next caller will share.
		s, err = d.open(context.WithoutCancel(ctx), dsn.DSN())
		if err != nil {
			return nil, fmt.Errorf("%w: control store %s: %w", tenant.ErrConnectFailed, dsn.Redacted(), err)
		}

		d.mu.Lock()
		d.store = s
		d.mu.Unlock()

		logger.L().Info("control pool ready",
			logger.Component("directory"),
			logger.String("control", dsn.Redacted()),
		)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(ControlStore), nil
}

// Control returns the control store if already open, nil otherwise. It never
// triggers a connection attempt; probes that must not block use this.
func (d *Directory) Control() ControlStore {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store
}

func cacheKey(code string) string { return "record:" + code }

// Resolve returns the connection record for a tenant code, cache-first.
// Successful resolution populates the cache as a side effect. Cold codes are
// resolved single-flight so a thundering herd issues one control query.
func (d *Directory) Resolve(ctx context.Context, code string) (*tenant.Record, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, tenant.ErrNotFound
	}

	if b, err := d.cache.Get(ctx, cacheKey(code)); err == nil {
		var rec tenant.Record
		if json.Unmarshal(b, &rec) == nil {
			metrics.RecordCacheHits.Inc()
			return &rec, nil
		}
		// Undecodable entry: drop it and fall through to a fresh fetch.
		_ = d.cache.Delete(ctx, cacheKey(code))
	}
	metrics.RecordCacheMisses.Inc()

	v, err, _ := d.sf.Do("resolve:"+code, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)

		s, err := d.EnsureControl(fetchCtx)
		if err != nil {
			return nil, err
		}
		rec, err := s.TenantByCode(fetchCtx, code)
		if err != nil {
			return nil, err
		}

		if b, err := json.Marshal(rec); err == nil {
			if err := d.cache.Set(fetchCtx, cacheKey(code), b, d.ttl); err != nil {
				logger.L().Warn("tenant record cache set failed",
					logger.Component("directory"),
					logger.TenantCode(code),
					logger.Err(err),
				)
			}
		}
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*tenant.Record), nil
}

// ResolveByID resolves by the opaque tenant id: one extra control round trip
// to recover the slug, then the usual cache-first path. Used by callers that
// only hold the id (scheduled jobs).
func (d *Directory) ResolveByID(ctx context.Context, id string) (*tenant.Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, tenant.ErrNotFound
	}
	s, err := d.EnsureControl(ctx)
	if err != nil {
		return nil, err
	}
	code, err := s.CodeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return d.Resolve(ctx, code)
}

// Invalidate drops the cached record for a tenant. Call it when a tenant is
// deactivated or its credentials rotate; until then a cached record may
// outlive deactivation (known limitation, eventual revocation).
func (d *Directory) Invalidate(code string) {
	_ = d.cache.Delete(context.Background(), cacheKey(strings.TrimSpace(code)))
}

// Close closes the control pool. The directory can be reused afterwards: the
// next EnsureControl reopens.
func (d *Directory) Close() {
	d.mu.Lock()
	s := d.store
	d.store = nil
	d.mu.Unlock()
	if s != nil {
		s.Close()
	}
}
