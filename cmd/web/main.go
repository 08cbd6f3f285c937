// cmd/web/main.go
//
// Citysync – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load env vars (jail-wide file → .env fallback).
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Optional Vault client (enabled when VAULT_ADDR is set) and config
//     load; `vault:` references in config resolve through the client.
//
//  4. Open the MySQL pool and log the active-organization count.
//
//  5. Open the GeoLite2 database for audit enrichment (optional).
//
//  6. Build the sync orchestrator, listing cache, role-member cache, and
//     the background scheduler.
//
//  7. Mount /metrics, /healthz, and the /api tree behind the middleware
//     chain (request enrichment → security headers → optional HTTPS
//     enforcement).
//
//  8. Serve until SIGINT/SIGTERM, then drain.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stationhouse/citysync/internal/config"
	"github.com/stationhouse/citysync/internal/database"
	"github.com/stationhouse/citysync/internal/httpapi"
	"github.com/stationhouse/citysync/internal/logger"
	"github.com/stationhouse/citysync/internal/middleware"
	"github.com/stationhouse/citysync/internal/org"
	"github.com/stationhouse/citysync/internal/requestinfo"
	"github.com/stationhouse/citysync/internal/roles"
	"github.com/stationhouse/citysync/internal/scheduler"
	"github.com/stationhouse/citysync/internal/server"
	"github.com/stationhouse/citysync/internal/sync"
	"github.com/stationhouse/citysync/internal/vault"
)

const serverEnvPath = "/usr/local/etc/citysync/global.env"

// loadEnv prefers the jail-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	rootDir, _ := os.Getwd()
	logOut, err := logger.New(rootDir, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Config (Vault-aware when VAULT_ADDR is set) ────────────────
	//
	var vaultCli *vault.Client
	if os.Getenv("VAULT_ADDR") != "" {
		vaultCli, err = vault.New(ctx, logOut)
		if err != nil {
			logOut.Fatalf("vault client: %v", err)
		}
	}
	cfg, err := config.LoadWithVault(ctx, vaultCli)
	if err != nil {
		logOut.Fatalf("load config: %v", err)
	}

	//
	// ── 2.  MySQL pool ─────────────────────────────────────────────────
	//
	logOut.Infow("connecting to database")
	db, err := database.Open(ctx, cfg.Database.DSN)
	if err != nil {
		logOut.Fatalf("connect database: %v", err)
	}
	defer db.Close()

	// Log active-organization count as an early sanity check.
	if orgs, err := org.AllActive(ctx, db); err == nil {
		logOut.Infow("database online", "active_orgs", len(orgs))
	}

	//
	// ── 3.  Audit enrichment (GeoLite2 optional) ───────────────────────
	//
	if err := requestinfo.InitGeo(cfg.GeoIP.DBPath); err != nil {
		logOut.Warnw("geoip disabled", "err", err)
	}

	//
	// ── 4.  Sync engine, caches, scheduler ─────────────────────────────
	//
	listings := httpapi.NewListingCache(2048)
	orch := sync.New(&sync.SQLStore{DB: db}, sync.Options{
		BatchSize:    cfg.Sync.BatchSize,
		MaxInFlight:  cfg.Sync.BatchWeight,
		FetchTimeout: cfg.Sync.FetchTimeout,
		RunTimeout:   cfg.Sync.RunTimeout,
		Invalidator:  listings,
	})

	sched := scheduler.New(db, orch, cfg.Sync.DefaultInterval)
	go sched.Run(ctx)

	api := &httpapi.API{
		DB:              db,
		Orch:            orch,
		Roles:           roles.NewMemberCache(db, roles.DefaultTTL, nil),
		Listings:        listings,
		DefaultInterval: cfg.Sync.DefaultInterval,
	}

	//
	// ── 5.  Route tree and middleware chain ────────────────────────────
	//
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", api.Router())

	var handler http.Handler = mux
	handler = middleware.Security(handler)
	handler = requestinfo.Enrich(handler)
	if cfg.HTTP.ForceHTTPS {
		handler = middleware.ForceHTTPS(handler)
	}

	srv := server.New(cfg.HTTP.ListenAddr, handler)

	//
	// ── 6.  Serve and drain ────────────────────────────────────────────
	//
	go func() {
		logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logOut.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logOut.Infow("shutting down")

	drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		logOut.Warnw("shutdown incomplete", "err", err)
	}
}
