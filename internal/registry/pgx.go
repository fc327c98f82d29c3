package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/staffdeck/staffdeck/internal/security/secretbox"
	"github.com/staffdeck/staffdeck/internal/tenant"
)

// pgxDB adapts *pgxpool.Pool to the DB interface.
type pgxDB struct{ pool *pgxpool.Pool }

func (p *pgxDB) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }
func (p *pgxDB) Close() error                   { p.pool.Close(); return nil }
func (p *pgxDB) Pool() *pgxpool.Pool            { return p.pool }

// openTenantPool is the production opener: it decrypts the stored password,
// opens a bounded pgx pool against the record's target and verifies it with
// a ping before handing it out. A pool that fails the ping is closed, never
// returned, so no broken state can end up registered.
func openTenantPool(ctx context.Context, rec *tenant.Record, cfg PoolConfig) (DB, error) {
	password, err := secretbox.Decrypt(rec.DBPasswordEnc)
	if err != nil {
		return nil, fmt.Errorf("decrypt credentials for %s: %w", rec.Code, err)
	}

	dsn := strings.Join([]string{
		"host=" + rec.DBHost,
		fmt.Sprintf("port=%d", rec.DBPort),
		"dbname=" + rec.DBName,
		"user=" + rec.DBUser,
		"password=" + password,
	}, " ")

	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pcfg.MaxConns = int32(cfg.MaxConns)
	pcfg.MinConns = int32(cfg.MinConns)
	pcfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	pcfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return &pgxDB{pool: pool}, nil
}
