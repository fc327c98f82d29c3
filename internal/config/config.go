package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ControlDBEnvVar supplies the control-store connection descriptor. It is
// env-only on purpose: the control store is the one secret-bearing piece of
// configuration and never belongs in the YAML file.
const ControlDBEnvVar = "CONTROL_DB_URL"

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr        string `yaml:"addr"`
		AdminAPIKey string `yaml:"admin_api_key"`
		// Diagnostics enables the X-Staffdeck-* response headers on tenant
		// routes (resolved host/db/tenant code, never credentials).
		Diagnostics bool `yaml:"diagnostics"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	ControlDB struct {
		MaxConns       int    `yaml:"max_conns"`
		ConnectTimeout string `yaml:"connect_timeout"`
	} `yaml:"control_db"`

	TenantPools struct {
		MaxConns        int    `yaml:"max_conns"`
		MinConns        int    `yaml:"min_conns"`
		ConnMaxIdleTime string `yaml:"conn_max_idle_time"`
		ConnectTimeout  string `yaml:"connect_timeout"`
	} `yaml:"tenant_pools"`

	Cache struct {
		Driver string `yaml:"driver"` // memory | redis
		TTL    string `yaml:"ttl"`    // "" or "0" = keep until invalidated
		Redis  struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	JWT struct {
		Issuer string `yaml:"issuer"`
		Secret string `yaml:"secret"` // HS256; env override recommended
	} `yaml:"jwt"`

	Routes struct {
		// Ordered prefix tables for route classification. Empty = built-in
		// defaults.
		ControlPrefixes []string `yaml:"control_prefixes"`
		TenantPrefixes  []string `yaml:"tenant_prefixes"`
	} `yaml:"routes"`
}

// Load reads the YAML file (optional: empty path or a missing file yields
// defaults), applies defaults and then env overrides.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.ControlDB.MaxConns == 0 {
		c.ControlDB.MaxConns = 5
	}
	if c.ControlDB.ConnectTimeout == "" {
		c.ControlDB.ConnectTimeout = "5s"
	}
	if c.TenantPools.MaxConns == 0 {
		c.TenantPools.MaxConns = 10
	}
	if c.TenantPools.ConnMaxIdleTime == "" {
		c.TenantPools.ConnMaxIdleTime = "5m"
	}
	if c.TenantPools.ConnectTimeout == "" {
		c.TenantPools.ConnectTimeout = "5s"
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}

	c.applyEnvOverrides()

	// validate duration strings up front so a typo fails at startup
	for _, d := range []string{
		c.ControlDB.ConnectTimeout,
		c.TenantPools.ConnMaxIdleTime,
		c.TenantPools.ConnectTimeout,
	} {
		if _, err := time.ParseDuration(d); err != nil {
			return nil, err
		}
	}
	if c.Cache.TTL != "" && c.Cache.TTL != "0" {
		if _, err := time.ParseDuration(c.Cache.TTL); err != nil {
			return nil, err
		}
	}

	// prod guard: diagnostic headers are opt-in per environment, never in prod
	if strings.EqualFold(c.App.Env, "prod") {
		c.Server.Diagnostics = false
	}

	return &c, nil
}

// Duration helpers for values validated in Load.

func (c *Config) ControlConnectTimeout() time.Duration {
	d, _ := time.ParseDuration(c.ControlDB.ConnectTimeout)
	return d
}

func (c *Config) TenantConnectTimeout() time.Duration {
	d, _ := time.ParseDuration(c.TenantPools.ConnectTimeout)
	return d
}

func (c *Config) TenantConnMaxIdleTime() time.Duration {
	d, _ := time.ParseDuration(c.TenantPools.ConnMaxIdleTime)
	return d
}

func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTL == "" || c.Cache.TTL == "0" {
		return 0
	}
	d, _ := time.ParseDuration(c.Cache.TTL)
	return d
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("ADMIN_API_KEY"); ok {
		c.Server.AdminAPIKey = v
	}
	if v, ok := getEnvBool("SERVER_DIAGNOSTICS"); ok {
		c.Server.Diagnostics = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	if v, ok := getEnvInt("CONTROL_DB_MAX_CONNS"); ok {
		c.ControlDB.MaxConns = v
	}
	if v, ok := getEnvStr("CONTROL_DB_CONNECT_TIMEOUT"); ok {
		c.ControlDB.ConnectTimeout = v
	}

	if v, ok := getEnvInt("TENANT_POOL_MAX_CONNS"); ok {
		c.TenantPools.MaxConns = v
	}
	if v, ok := getEnvInt("TENANT_POOL_MIN_CONNS"); ok {
		c.TenantPools.MinConns = v
	}
	if v, ok := getEnvStr("TENANT_POOL_CONN_MAX_IDLE_TIME"); ok {
		c.TenantPools.ConnMaxIdleTime = v
	}
	if v, ok := getEnvStr("TENANT_POOL_CONNECT_TIMEOUT"); ok {
		c.TenantPools.ConnectTimeout = v
	}

	if v, ok := getEnvStr("CACHE_DRIVER"); ok {
		c.Cache.Driver = v
	}
	if v, ok := getEnvStr("CACHE_TTL"); ok {
		c.Cache.TTL = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("JWT_SECRET"); ok {
		c.JWT.Secret = v
	}

	if v, ok := getEnvCSV("ROUTES_CONTROL_PREFIXES"); ok && len(v) > 0 {
		c.Routes.ControlPrefixes = v
	}
	if v, ok := getEnvCSV("ROUTES_TENANT_PREFIXES"); ok && len(v) > 0 {
		c.Routes.TenantPrefixes = v
	}
}

// ---- env helpers ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}
