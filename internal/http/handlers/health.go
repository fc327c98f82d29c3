package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/staffdeck/staffdeck/internal/directory"
	"github.com/staffdeck/staffdeck/internal/registry"
	"github.com/staffdeck/staffdeck/internal/security/secretbox"
)

// Health serves the liveness and readiness probes.
type Health struct {
	dir *directory.Directory
	reg *registry.Registry
}

func NewHealth(dir *directory.Directory, reg *registry.Registry) *Health {
	return &Health{dir: dir, reg: reg}
}

// Liveness always answers 200: the process is up.
func (h *Health) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness checks what the process needs to serve traffic. The control pool
// is only pinged when it is already open: readiness must never be the thing
// that opens connections.
func (h *Health) Readiness(w http.ResponseWriter, r *http.Request) {
	type check struct {
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	}
	checks := map[string]check{}
	ready := true

	if secretbox.Ready() {
		checks["secretbox"] = check{Status: "ok"}
	} else {
		checks["secretbox"] = check{Status: "fail", Error: "master key not configured"}
		ready = false
	}

	if s := h.dir.Control(); s != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.Ping(ctx); err != nil {
			checks["control_db"] = check{Status: "fail", Error: err.Error()}
			ready = false
		} else {
			checks["control_db"] = check{Status: "ok"}
		}
	} else {
		checks["control_db"] = check{Status: "idle"}
	}

	status := http.StatusOK
	overall := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		overall = "not_ready"
	}
	writeJSON(w, status, map[string]any{
		"status": overall,
		"checks": checks,
		"pools":  h.reg.PoolCount(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
