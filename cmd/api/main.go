package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"talenta.dev/internal/auth"
	"talenta.dev/internal/config"
	"talenta.dev/internal/employee"
	"talenta.dev/internal/httpapi"
	"talenta.dev/internal/obs"
)

var version = "0.3.0"

func main() {
	obs.Init()
	log := obs.Logger()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}
	if cfg.JWTSecret == "" {
		log.Fatal("missing TALENTA_JWT_SECRET")
	}

	// Without a DSN the API runs on the in-memory store (local development).
	var (
		store   employee.Store
		probe   httpapi.ReadyProbe
		pgstore *employee.PGStore
	)
	if cfg.PGDSN != "" {
		pgstore, err = employee.Open(cfg.PGDSN)
		if err != nil {
			log.Fatal("open db", zap.Error(err))
		}
		store = pgstore
		probe = httpapi.ReadyProbe{DB: pgstore.DB()}
	} else {
		log.Warn("no TALENTA_PG_DSN set, using in-memory store")
		store = employee.NewMemoryStore()
	}

	issuer, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatal("token issuer", zap.Error(err))
	}
	guard := auth.NewService(store, issuer,
		auth.WithRefreshGrace(cfg.RefreshGrace),
		auth.WithLogger(log),
	)

	api := httpapi.New(probe, version, store, guard, &httpapi.Options{
		Cookies: httpapi.CookieConfig{
			Name:     cfg.CookieName,
			Path:     cfg.CookiePath,
			Domain:   cfg.CookieDomain,
			Secure:   cfg.CookieSecure,
			SameSite: cfg.CookieSameSite,
		},
		Timezone:    cfg.Timezone,
		CORSOrigins: cfg.CORSOrigins,
		RateBurst:   cfg.RateBurst,
		RatePerSec:  cfg.RatePerSec,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("starting talenta-api", zap.String("version", version), zap.String("addr", srv.Addr))

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if pgstore != nil {
		_ = pgstore.DB().Close()
	}
	log.Info("stopped")
}
