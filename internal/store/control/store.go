// Package control wraps the pooled connection to the shared control store
// and the tenant-directory queries served from it.
package control

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/staffdeck/staffdeck/internal/tenant"
)

type Config struct {
	MaxConns       int
	ConnectTimeout time.Duration
}

type Store struct{ pool *pgxpool.Pool }

// Open parses the DSN, opens the pool and verifies connectivity. A pool that
// cannot be pinged is closed and never returned, so callers retry cleanly.
func Open(ctx context.Context, dsn string, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.ConnectTimeout > 0 {
		pcfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Pool exposes the underlying pool for handlers that query control-store
// business tables (users, jobs, notifications).
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

// Stats returns a snapshot of the pool state, nil when uninitialized.
func (s *Store) Stats() *pgxpool.Stat {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Stat()
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close closes the pool. Idempotent.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// TenantByCode fetches the single active tenant row for a slug.
func (s *Store) TenantByCode(ctx context.Context, code string) (*tenant.Record, error) {
	const q = `
SELECT id, code, name, db_host, db_port, db_name, db_user, db_password_enc
FROM tenants
WHERE code = $1 AND is_active = true
LIMIT 1`
	return s.scanRecord(s.pool.QueryRow(ctx, q, code))
}

// CodeByID resolves an opaque tenant id to its slug. Inactive tenants do not
// resolve.
func (s *Store) CodeByID(ctx context.Context, id string) (string, error) {
	const q = `SELECT code FROM tenants WHERE id = $1 AND is_active = true LIMIT 1`
	var code string
	if err := s.pool.QueryRow(ctx, q, id).Scan(&code); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", tenant.ErrNotFound
		}
		return "", err
	}
	return code, nil
}

// ListActive returns every active tenant, for the admin surface.
func (s *Store) ListActive(ctx context.Context) ([]tenant.Record, error) {
	const q = `
SELECT id, code, name, db_host, db_port, db_name, db_user, db_password_enc
FROM tenants
WHERE is_active = true
ORDER BY code`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tenant.Record
	for rows.Next() {
		var r tenant.Record
		if err := rows.Scan(&r.ID, &r.Code, &r.Name, &r.DBHost, &r.DBPort, &r.DBName, &r.DBUser, &r.DBPasswordEnc); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) scanRecord(row pgx.Row) (*tenant.Record, error) {
	var r tenant.Record
	if err := row.Scan(&r.ID, &r.Code, &r.Name, &r.DBHost, &r.DBPort, &r.DBName, &r.DBUser, &r.DBPasswordEnc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}
