// cmd/web/main.go
//
// Folio – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load env vars (jail-wide file → .env fallback).
//
//  2. Connect to Vault when VAULT_ADDR is set, so `vault:` references in
//     the config can be resolved.
//
//  3. Load and validate configuration.
//
//  4. Start the daily rotating logger (tees to console in a TTY).
//
//  5. Open the archive DB when the `archive` driver is configured, and
//     build the delivery chain.
//
//  6. Build the per-visitor controller store and the submit rate limiter.
//
//  7. Router:
//
//     • /metrics                 – Prometheus
//     • /healthz                 – liveness
//     • /api/contact/...         – contact component
//
//     wrapped in RealIP (trust_proxy only) → Security → ForceHTTPS
//     (optional) → requestinfo.Enrich.
//
//  8. Serve until SIGINT/SIGTERM, then drain in-flight requests.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	contactcomp "github.com/yanizio/folio/components/contact"
	"github.com/yanizio/folio/internal/component"
	"github.com/yanizio/folio/internal/config"
	"github.com/yanizio/folio/internal/contact"
	"github.com/yanizio/folio/internal/database"
	"github.com/yanizio/folio/internal/delivery"
	"github.com/yanizio/folio/internal/logger"
	"github.com/yanizio/folio/internal/middleware"
	"github.com/yanizio/folio/internal/requestinfo"
	"github.com/yanizio/folio/internal/server"
	"github.com/yanizio/folio/internal/session"
	"github.com/yanizio/folio/internal/vault"
)

const serverEnvPath = "/usr/local/etc/folio/global.env"

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

func main() {
	loadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("folio: %v", err)
	}
}

func run(ctx context.Context) error {
	//
	// ── 1.  Secrets and configuration ───────────────────────────────────
	//
	var secrets config.SecretResolver
	if os.Getenv("VAULT_ADDR") != "" {
		vc, err := vault.New(ctx)
		if err != nil {
			return err
		}
		secrets = vc
	}

	cfg, err := config.Load(ctx, secrets)
	if err != nil {
		return err
	}

	logOut, err := logger.New(cfg.Paths.Root, cfg.Log.Level, runningInTTY())
	if err != nil {
		return err
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 2.  Delivery chain ──────────────────────────────────────────────
	//
	var archiveDB *sqlx.DB
	if cfg.Delivery.Uses("archive") {
		archiveDB, err = database.Open(ctx, cfg.Delivery.Archive.DSN)
		if err != nil {
			return err
		}
		defer archiveDB.Close()
		logOut.Infow("archive db online", "table", cfg.Delivery.Archive.Table)
	}

	send, err := delivery.Build(cfg.Delivery, archiveDB, logOut)
	if err != nil {
		return err
	}

	//
	// ── 3.  Request info ────────────────────────────────────────────────
	//
	if p := cfg.RequestInfo.GeoIPDB; p != "" {
		if err := requestinfo.InitGeo(p); err != nil {
			logOut.Warnw("geoip disabled", "err", err)
		} else {
			defer requestinfo.CloseGeo()
		}
	}

	//
	// ── 4.  Visitor store and rate limiter ──────────────────────────────
	//
	recipient := contact.Recipient{Name: cfg.Contact.Recipient.Name, Email: cfg.Contact.Recipient.Email}
	store := session.NewStore(func(string) *contact.Controller {
		return contact.New(send,
			contact.WithRecipient(recipient),
			contact.WithAlertTTL(cfg.Contact.AlertTTL),
			contact.WithSendTimeout(cfg.Contact.SendTimeout),
			contact.WithLogger(logOut),
		)
	}, cfg.Session.IdleTTL, cfg.Session.MaxEntries, cfg.Session.EvictInterval)
	defer store.Close() // runs before archiveDB.Close; waits for detached sends

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	defer limiter.Stop()

	component.Register(contactcomp.New(contactcomp.Deps{
		Store:     store,
		Cookies:   session.Cookies{Name: cfg.Session.CookieName, Signer: session.NewSigner(cfg.Session.Secret)},
		Limiter:   limiter.Middleware,
		BlockBots: cfg.RequestInfo.BlockBots,
		Log:       logOut,
	}))

	//
	// ── 5.  Router ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	if cfg.HTTP.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Security)
	if cfg.HTTP.ForceHTTPS {
		r.Use(middleware.ForceHTTPS)
	}
	r.Use(requestinfo.Enrich)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	component.Mount(r)

	//
	// ── 6.  Serve until signalled ───────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, r, cfg.Contact.SendTimeout)
	errCh := make(chan error, 1)
	go func() {
		logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr, "drivers", cfg.Delivery.Drivers)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logOut.Infow("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Contact.SendTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logOut.Warnw("shutdown", "err", err)
	}
	logOut.Infow("bye")
	return nil
}
