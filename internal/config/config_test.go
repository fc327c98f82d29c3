package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.Addr != ":8080" {
		t.Fatalf("addr default: %q", c.Server.Addr)
	}
	if c.TenantPools.MaxConns != 10 {
		t.Fatalf("tenant pool max conns default: %d", c.TenantPools.MaxConns)
	}
	if c.TenantConnMaxIdleTime() != 5*time.Minute {
		t.Fatalf("idle time default: %v", c.TenantConnMaxIdleTime())
	}
	if c.ControlConnectTimeout() != 5*time.Second {
		t.Fatalf("control connect timeout default: %v", c.ControlConnectTimeout())
	}
	if c.Cache.Driver != "memory" {
		t.Fatalf("cache driver default: %q", c.Cache.Driver)
	}
	if c.Server.Diagnostics {
		t.Fatal("diagnostics must default off")
	}
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err != nil {
		t.Fatalf("missing file must fall back to defaults: %v", err)
	}
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  addr: ":9090"
  diagnostics: true
tenant_pools:
  max_conns: 4
routes:
  tenant_prefixes: ["/api/custom"]
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SERVER_ADDR", ":7070")
	t.Setenv("TENANT_POOL_MIN_CONNS", "2")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.Addr != ":7070" {
		t.Fatalf("env must override file: %q", c.Server.Addr)
	}
	if c.TenantPools.MaxConns != 4 {
		t.Fatalf("file value lost: %d", c.TenantPools.MaxConns)
	}
	if c.TenantPools.MinConns != 2 {
		t.Fatalf("env int override lost: %d", c.TenantPools.MinConns)
	}
	if len(c.Routes.TenantPrefixes) != 1 || c.Routes.TenantPrefixes[0] != "/api/custom" {
		t.Fatalf("route table lost: %+v", c.Routes.TenantPrefixes)
	}
	if !c.Server.Diagnostics {
		t.Fatal("diagnostics from file lost")
	}
}

func TestLoad_ProdDisablesDiagnostics(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("SERVER_DIAGNOSTICS", "true")

	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Server.Diagnostics {
		t.Fatal("diagnostic headers must never be on in prod")
	}
}

func TestLoad_BadDurationFailsFast(t *testing.T) {
	t.Setenv("TENANT_POOL_CONNECT_TIMEOUT", "soon")
	if _, err := Load(""); err == nil {
		t.Fatal("bad duration must fail at startup")
	}
}

func TestLoad_RoutePrefixesFromEnvCSV(t *testing.T) {
	t.Setenv("ROUTES_CONTROL_PREFIXES", "/api/ctl, /api/ops ,")
	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"/api/ctl", "/api/ops"}
	if len(c.Routes.ControlPrefixes) != len(want) {
		t.Fatalf("got %+v", c.Routes.ControlPrefixes)
	}
	for i := range want {
		if c.Routes.ControlPrefixes[i] != want[i] {
			t.Fatalf("got %+v", c.Routes.ControlPrefixes)
		}
	}
}
