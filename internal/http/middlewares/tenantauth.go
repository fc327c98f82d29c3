package middlewares

import (
	"net/http"

	"github.com/staffdeck/staffdeck/internal/http/errors"
	"github.com/staffdeck/staffdeck/internal/observability/logger"
	"github.com/staffdeck/staffdeck/internal/registry"
)

// Diagnostic response headers. Env-gated; they expose target coordinates but
// never credentials.
const (
	headerTenant = "X-Staffdeck-Tenant"
	headerDBHost = "X-Staffdeck-DB-Host"
	headerDBName = "X-Staffdeck-DB-Name"
)

// WithTenantAccess is the gate between authentication and tenant data. It
// requires a verified principal with a tenant claim, obtains (or creates) the
// tenant's pool handle and attaches it to the request context. The tenant
// claim of the verified principal is the only input that selects a database.
func WithTenantAccess(reg *registry.Registry, diagnostics bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			p := GetPrincipal(ctx)
			if p == nil {
				errors.WriteError(w, errors.ErrUnauthorized)
				return
			}
			if p.TenantCode == "" {
				errors.WriteError(w, errors.ErrTenantClaimMissing)
				return
			}

			h, err := reg.GetOrCreate(ctx, p.TenantCode)
			if err != nil {
				logger.From(ctx).Error("tenant pool unavailable",
					logger.TenantCode(p.TenantCode),
					logger.Err(err),
				)
				errors.WriteError(w, mapStoreError(err, true))
				return
			}

			if diagnostics {
				t := h.Target()
				w.Header().Set(headerTenant, t.Code)
				w.Header().Set(headerDBHost, t.Host)
				w.Header().Set(headerDBName, t.DBName)
			}

			ctx = withTenantHandle(ctx, h)
			l := logger.From(ctx).With(
				logger.DBHost(h.Target().Host),
				logger.DBName(h.Target().DBName),
			)
			next.ServeHTTP(w, r.WithContext(logger.ToContext(ctx, l)))
		})
	}
}
