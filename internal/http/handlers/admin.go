package handlers

import (
	"crypto/subtle"
	stderrors "errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/staffdeck/staffdeck/internal/directory"
	"github.com/staffdeck/staffdeck/internal/http/errors"
	"github.com/staffdeck/staffdeck/internal/observability/logger"
	"github.com/staffdeck/staffdeck/internal/registry"
	"github.com/staffdeck/staffdeck/internal/tenant"
)

const adminKeyHeader = "X-Admin-API-Key"

// Admin exposes the operator surface: tenant inventory, pool stats and
// targeted eviction. Gated by a static API key, not by tenant credentials.
type Admin struct {
	dir *directory.Directory
	reg *registry.Registry
	key string
}

func NewAdmin(dir *directory.Directory, reg *registry.Registry, apiKey string) *Admin {
	return &Admin{dir: dir, reg: reg, key: apiKey}
}

// RequireKey guards the admin subtree. An empty configured key disables the
// surface entirely rather than leaving it open.
func (a *Admin) RequireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.key == "" {
			errors.WriteError(w, errors.ErrForbidden.WithDetail("admin surface disabled"))
			return
		}
		got := r.Header.Get(adminKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(a.key)) != 1 {
			errors.WriteError(w, errors.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// tenantView is the admin rendering of a tenant record. No credential
// material, encrypted or otherwise, ever leaves this surface.
type tenantView struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	DBHost string `json:"db_host"`
	DBPort int    `json:"db_port"`
	DBName string `json:"db_name"`
}

// ListTenants returns the active tenants straight from the control store.
func (a *Admin) ListTenants(w http.ResponseWriter, r *http.Request) {
	store, err := a.dir.EnsureControl(r.Context())
	if err != nil {
		logger.From(r.Context()).Error("admin tenant list failed", logger.Err(err))
		errors.WriteError(w, adminStoreError(err))
		return
	}
	recs, err := store.ListActive(r.Context())
	if err != nil {
		logger.From(r.Context()).Error("admin tenant list failed", logger.Err(err))
		errors.WriteError(w, adminStoreError(err))
		return
	}

	out := make([]tenantView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, tenantView{
			ID:     rec.ID,
			Code:   rec.Code,
			Name:   rec.Name,
			DBHost: rec.DBHost,
			DBPort: rec.DBPort,
			DBName: rec.DBName,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tenants": out, "count": len(out)})
}

// ListPools snapshots the registered tenant pools and, when open, the
// control pool.
func (a *Admin) ListPools(w http.ResponseWriter, _ *http.Request) {
	stats := a.reg.Stats()
	out := map[string]any{"pools": stats, "count": len(stats)}

	if s := a.dir.Control(); s != nil {
		if cs, ok := s.(interface{ Stats() *pgxpool.Stat }); ok {
			if st := cs.Stats(); st != nil {
				out["control"] = map[string]any{
					"acquired": st.AcquiredConns(),
					"idle":     st.IdleConns(),
					"total":    st.TotalConns(),
				}
			}
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// EvictPool closes a tenant's pool and drops its cached record. The next
// request for that tenant re-resolves and reconnects from scratch. Used after
// credential rotation or tenant deactivation.
func (a *Admin) EvictPool(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		errors.WriteError(w, errors.ErrBadRequest.WithDetail("tenant code is required"))
		return
	}
	a.reg.Close(code)
	a.dir.Invalidate(code)
	logger.From(r.Context()).Info("tenant pool evicted", logger.TenantCode(code))
	writeJSON(w, http.StatusOK, map[string]string{"status": "evicted", "code": code})
}

func adminStoreError(err error) *errors.AppError {
	switch {
	case stderrors.Is(err, tenant.ErrConfigMissing):
		return errors.ErrInternalServerError.WithCause(err)
	case stderrors.Is(err, tenant.ErrConnectFailed):
		return errors.ErrControlStoreUnavailable.WithCause(err)
	default:
		return errors.FromError(err)
	}
}
