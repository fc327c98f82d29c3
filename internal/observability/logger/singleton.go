package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once     sync.Once
	instance *zap.Logger
)

// Init initializes the singleton. Idempotent: only the first call has effect.
// Call it early in main, before anything logs.
func Init(cfg Config) {
	once.Do(func() {
		instance = build(cfg)
	})
}

// L returns the singleton logger, initializing a dev/info default if Init
// was never called.
func L() *zap.Logger {
	if instance == nil {
		Init(Config{Env: "dev", Level: "info"})
	}
	return instance
}

// Named returns a logger tagged with a component name.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// With returns a logger carrying extra persistent fields.
func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}

// Sync flushes buffered entries. Deferred from main.
func Sync() error {
	if instance != nil {
		return instance.Sync()
	}
	return nil
}
