package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/scrapehost/api"
	"github.com/use-agent/scrapehost/config"
	"github.com/use-agent/scrapehost/invoker"
	"github.com/use-agent/scrapehost/metrics"
	"github.com/use-agent/scrapehost/store"
	"github.com/use-agent/scrapehost/webhook"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("scrapehost starting",
		"root", cfg.Root,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"dashboard", cfg.Server.DashboardUI,
		"resultPath", cfg.Store.ResultPath,
		"scraperBin", cfg.Invoker.ScraperBin,
		"settle", cfg.Invoker.SettleStrategy,
	)

	// ── 3. Result store + scraper invoker ───────────────────────────
	rs := store.NewFileStore(cfg.Store.ResultPath)
	inv := invoker.New(cfg.Invoker.ScraperBin,
		invoker.WithTimeout(cfg.Invoker.Timeout),
		invoker.WithSettler(newSettler(cfg.Invoker, rs.Path())),
	)

	// ── 4. Metrics + webhook ────────────────────────────────────────
	m := metrics.New()
	notifier := webhook.NewNotifier(cfg.Webhook.URL, cfg.Webhook.Secret)
	if notifier != nil {
		slog.Info("webhook notifications enabled", "url", cfg.Webhook.URL)
	}

	// ── 5. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(cfg, rs, inv, m, notifier)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// In-flight scrapes are not cancelled; give them a bounded window.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	slog.Info("scrapehost stopped")
}

func newSettler(cfg config.InvokerConfig, resultPath string) invoker.Settler {
	if cfg.SettleStrategy == config.SettleWatch {
		return invoker.WatchSettler{Path: resultPath, Max: cfg.SettleDelay}
	}
	return invoker.DelaySettler{Delay: cfg.SettleDelay}
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
