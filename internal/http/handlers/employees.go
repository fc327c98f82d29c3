package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/staffdeck/staffdeck/internal/http/errors"
	"github.com/staffdeck/staffdeck/internal/http/middlewares"
	"github.com/staffdeck/staffdeck/internal/observability/logger"
)

// Employees is the first tenant-plane handler group. Everything here runs
// behind the tenant access step, so the context always carries a live handle
// scoped to the caller's own database.
type Employees struct{}

func NewEmployees() *Employees { return &Employees{} }

// Ping answers with a round trip against the caller's tenant database. It is
// the smoke test for the whole routing chain: classification, authentication,
// pool acquisition and isolation.
func (e *Employees) Ping(w http.ResponseWriter, r *http.Request) {
	h := middlewares.GetTenantHandle(r.Context())
	if h == nil {
		errors.WriteError(w, errors.ErrInternalServerError.WithDetail("no tenant handle attached"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	start := time.Now()
	if err := h.Ping(ctx); err != nil {
		logger.From(r.Context()).Error("tenant ping failed",
			logger.TenantCode(h.Code()),
			logger.Err(err),
		)
		errors.WriteError(w, errors.ErrTenantStoreUnavailable.WithCause(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tenant":     h.Code(),
		"database":   h.Target().DBName,
		"latency_ms": time.Since(start).Milliseconds(),
	})
}
