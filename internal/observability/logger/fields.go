package logger

import (
	"time"

	"go.uber.org/zap"
)

// Typed field constructors so call sites agree on key names.

// ---- HTTP ----

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }
func DurationMs(v int64) zap.Field       { return zap.Int64("duration_ms", v) }

// ---- Routing / tenancy ----

func TenantCode(v string) zap.Field { return zap.String("tenant_code", v) }
func TenantID(v string) zap.Field   { return zap.String("tenant_id", v) }

// TenantHint carries the unverified tenant code decoded from a bearer token.
// Diagnostics only; never route data access on it.
func TenantHint(v string) zap.Field { return zap.String("tenant_hint", v) }

func RouteClass(v string) zap.Field { return zap.String("route_class", v) }
func DBHost(v string) zap.Field     { return zap.String("db_host", v) }
func DBName(v string) zap.Field     { return zap.String("db_name", v) }

// ---- System ----

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Err(err error) zap.Field      { return zap.Error(err) }
func Count(v int) zap.Field        { return zap.Int("count", v) }

// ---- Generic ----

func String(key, v string) zap.Field  { return zap.String(key, v) }
func Int(key string, v int) zap.Field { return zap.Int(key, v) }
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
