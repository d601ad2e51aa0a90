package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/famscrap/scrapbill/internal/api"
	"github.com/famscrap/scrapbill/internal/auth"
	"github.com/famscrap/scrapbill/internal/config"
	"github.com/famscrap/scrapbill/internal/metrics"
	"github.com/famscrap/scrapbill/internal/service"
	"github.com/famscrap/scrapbill/internal/storage/sqlite"
	"github.com/famscrap/scrapbill/internal/syncer"
	"github.com/famscrap/scrapbill/pkg/logging"
)

const sessionDuration = 24 * time.Hour

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize SQLite storage
	store, err := sqlite.New(cfg.DBPath, cfg.BillPrefix)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath, "bill_prefix", cfg.BillPrefix)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	billing := service.NewBillingService(store, m)

	client := syncer.NewClient(cfg.BackendURL, cfg.SyncTimeout, cfg.ProbeTimeout)
	engine := syncer.NewEngine(store, client, m, cfg.SyncMaxRetries)
	if cfg.BackendURL == "" {
		slog.Warn("BACKEND_URL not set, sync passes will fail until configured")
	}

	if cfg.JWTSecret == "" || cfg.AdminPassword == "" {
		slog.Error("JWT_SECRET and ADMIN_PASSWORD must be set")
		os.Exit(1)
	}
	tokens := auth.NewJWTManager(cfg.JWTSecret, sessionDuration)
	admin, err := auth.NewAdminAuthenticator(cfg.AdminPassword, tokens)
	if err != nil {
		slog.Error("Failed to initialize admin auth", "error", err)
		os.Exit(1)
	}

	routes := api.NewServer(billing, engine, admin).Routes()
	mux := http.NewServeMux()
	mux.Handle("/api/", routes)
	mux.Handle("/healthz", routes)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Wrap with h2c for HTTP/2 without TLS
	h2cHandler := h2c.NewHandler(mux, &http2.Server{})

	addr := fmt.Sprintf(":%s", cfg.Port)
	slog.Info("Server starting", "address", addr, "url", fmt.Sprintf("http://localhost%s", addr))
	if err := http.ListenAndServe(addr, h2cHandler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
