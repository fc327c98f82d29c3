// staffdeck is the multi-tenant API server. It owns one control-store pool,
// one pool per active tenant and the routing layer that picks between them.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/staffdeck/staffdeck/internal/cache"
	"github.com/staffdeck/staffdeck/internal/config"
	"github.com/staffdeck/staffdeck/internal/directory"
	"github.com/staffdeck/staffdeck/internal/http/router"
	"github.com/staffdeck/staffdeck/internal/metrics"
	"github.com/staffdeck/staffdeck/internal/observability/logger"
	"github.com/staffdeck/staffdeck/internal/registry"
	"github.com/staffdeck/staffdeck/internal/token"
)

func main() {
	// .env is a dev convenience; absence is normal in every other environment.
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.L().Fatal("config load failed", logger.Err(err))
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "staffdeck"})
	defer func() { _ = logger.Sync() }()

	if err := metrics.Register(nil); err != nil {
		logger.L().Fatal("metrics registration failed", logger.Err(err))
	}

	recordCache, err := cache.New(cache.Config{
		Driver:   cfg.Cache.Driver,
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
		TTL:      cfg.CacheTTL(),
	})
	if err != nil {
		logger.L().Fatal("cache init failed", logger.Err(err))
	}

	dir := directory.New(directory.Config{
		Cache:          recordCache,
		CacheTTL:       cfg.CacheTTL(),
		MaxConns:       cfg.ControlDB.MaxConns,
		ConnectTimeout: cfg.ControlConnectTimeout(),
	})

	reg, err := registry.New(registry.Config{
		Directory: dir,
		Pool: registry.PoolConfig{
			MaxConns:        cfg.TenantPools.MaxConns,
			MinConns:        cfg.TenantPools.MinConns,
			ConnMaxIdleTime: cfg.TenantConnMaxIdleTime(),
			ConnectTimeout:  cfg.TenantConnectTimeout(),
		},
	})
	if err != nil {
		logger.L().Fatal("registry init failed", logger.Err(err))
	}

	handler := router.New(router.Deps{
		Config:    cfg,
		Directory: dir,
		Registry:  reg,
		Verifier:  token.NewHS256(cfg.JWT.Secret, cfg.JWT.Issuer),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.L().Info("server listening",
			logger.Component("main"),
			logger.String("addr", cfg.Server.Addr),
			logger.String("env", cfg.App.Env),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal("server failed", logger.Err(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.L().Info("shutting down", logger.Component("main"))
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.L().Warn("server shutdown incomplete", logger.Err(err))
	}

	// In-flight requests are drained; now release every tenant pool and the
	// control pool behind them.
	reg.CloseAll()
	_ = recordCache.Close()
	logger.L().Info("shutdown complete", logger.Component("main"))
}
