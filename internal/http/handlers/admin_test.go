package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/staffdeck/staffdeck/internal/config"
	"github.com/staffdeck/staffdeck/internal/directory"
	"github.com/staffdeck/staffdeck/internal/registry"
	"github.com/staffdeck/staffdeck/internal/tenant"
)

type stubStore struct{ records map[string]tenant.Record }

func (s *stubStore) TenantByCode(_ context.Context, code string) (*tenant.Record, error) {
	r, ok := s.records[code]
	if !ok {
		return nil, tenant.ErrNotFound
	}
	out := r
	return &out, nil
}

func (s *stubStore) CodeByID(context.Context, string) (string, error) {
	return "", tenant.ErrNotFound
}

func (s *stubStore) ListActive(context.Context) ([]tenant.Record, error) {
	out := make([]tenant.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out, nil
}

func (s *stubStore) Ping(context.Context) error { return nil }
func (s *stubStore) Close()                     {}

type stubDB struct{}

func (stubDB) Ping(context.Context) error { return nil }
func (stubDB) Close() error               { return nil }

func adminFixture(t *testing.T) (*Admin, *registry.Registry, *directory.Directory) {
	t.Helper()
	store := &stubStore{records: map[string]tenant.Record{
		"acme": {
			ID: "t-1", Code: "acme", Name: "Acme Corp",
			DBHost: "db-acme", DBPort: 5432, DBName: "staffdeck_acme",
			DBUser: "acme_app", DBPasswordEnc: "enc:secret",
		},
	}}
	dir := directory.New(directory.Config{
		Open: func(context.Context, string) (directory.ControlStore, error) {
			return store, nil
		},
		DescriptorFromEnv: func() (*config.ControlDSN, error) {
			return &config.ControlDSN{Host: "ctl", Port: 5432, Database: "control", User: "app"}, nil
		},
	})
	reg, err := registry.New(registry.Config{
		Directory: dir,
		Open: func(context.Context, *tenant.Record) (registry.DB, error) {
			return stubDB{}, nil
		},
	})
	require.NoError(t, err)
	return NewAdmin(dir, reg, "sekrit"), reg, dir
}

func adminRouter(a *Admin) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(a.RequireKey)
		r.Get("/tenants", a.ListTenants)
		r.Get("/pools", a.ListPools)
		r.Delete("/tenants/{code}/pool", a.EvictPool)
	})
	return r
}

func TestAdmin_KeyGate(t *testing.T) {
	a, _, _ := adminFixture(t)
	h := adminRouter(a)

	// no key
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/pools", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// wrong key
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/pools", nil)
	req.Header.Set("X-Admin-API-Key", "guess")
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// right key
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/admin/pools", nil)
	req.Header.Set("X-Admin-API-Key", "sekrit")
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdmin_EmptyKeyDisablesSurface(t *testing.T) {
	h := adminRouter(NewAdmin(nil, nil, ""))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/pools", nil)
	req.Header.Set("X-Admin-API-Key", "")
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdmin_ListTenantsOmitsCredentials(t *testing.T) {
	a, _, _ := adminFixture(t)
	h := adminRouter(a)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/tenants", nil)
	req.Header.Set("X-Admin-API-Key", "sekrit")
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "enc:secret")
	require.NotContains(t, rec.Body.String(), "password")

	var payload struct {
		Count   int `json:"count"`
		Tenants []struct {
			Code   string `json:"code"`
			DBHost string `json:"db_host"`
		} `json:"tenants"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, 1, payload.Count)
	require.Equal(t, "acme", payload.Tenants[0].Code)
}

func TestAdmin_PoolsAndEvict(t *testing.T) {
	a, reg, _ := adminFixture(t)
	h := adminRouter(a)

	_, err := reg.GetOrCreate(context.Background(), "acme")
	require.NoError(t, err)
	require.Equal(t, 1, reg.PoolCount())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/pools", nil)
	req.Header.Set("X-Admin-API-Key", "sekrit")
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"acme"`)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/admin/tenants/acme/pool", nil)
	req.Header.Set("X-Admin-API-Key", "sekrit")
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 0, reg.PoolCount())
}
