// Command server generates a banking fixture in-process and serves it over a
// read-only HTTP API for exploratory querying.
//
// Usage:
//
//	go run ./cmd/server [flags]
//
// Flags:
//
//	-port             HTTP port to listen on (default: 8080)
//	-config           Path to a JSON config file (default: none, built-in defaults)
//	-expose-manifest  Serve the anomaly manifest at /api/v1/manifest
//	-notify           Comma-separated webhook URLs to announce the fixture to
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"vaultline/bankfixture/internal/api"
	"vaultline/bankfixture/internal/config"
	"vaultline/bankfixture/internal/generator"
	"vaultline/bankfixture/internal/metrics"
	"vaultline/bankfixture/internal/store"
	"vaultline/bankfixture/internal/webhook"
)

func main() {
	port := flag.Int("port", 8080, "HTTP port")
	configPath := flag.String("config", "", "path to a JSON config file")
	exposeManifest := flag.Bool("expose-manifest", false, "serve the anomaly manifest")
	notify := flag.String("notify", "", "comma-separated webhook URLs")
	flag.Parse()

	// Most PaaS platforms inject PORT as an env var.
	// It takes precedence over the -port flag.
	if envPort := os.Getenv("PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil {
			*port = p
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found; relying on existing environment")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	urls := webhook.ParseURLs(*notify)
	if len(urls) == 0 {
		urls = webhook.ParseURLs(os.Getenv(webhook.EnvURLs))
	}

	// ── Wire dependencies ─────────────────────────────────────────────────────
	s := store.New()
	m := metrics.New()
	router := api.NewRouter(api.NewHandler(s, *exposeManifest), m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Generate the fixture ──────────────────────────────────────────────────
	if err := load(ctx, cfg, s, m, webhook.New(urls, slog.Default())); err != nil {
		slog.Error("fixture not generated", "error", err)
		os.Exit(1)
	}

	// ── Start HTTP server ─────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server listening", "port", *port, "expose_manifest", *exposeManifest)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	slog.Info("server stopped")
}

// load generates a dataset from cfg, records it and swaps it into s.
func load(ctx context.Context, cfg config.Config, s *store.Store, m *metrics.Metrics, n *webhook.Notifier) error {
	asm, err := generator.New(cfg, generator.WithLogger(slog.Default()))
	if err != nil {
		m.RecordGeneration(nil, 0, err)
		return err
	}

	started := time.Now()
	ds, err := asm.Generate(ctx)
	m.RecordGeneration(ds, time.Since(started), err)
	if err != nil {
		return err
	}
	s.Load(ds)

	sum, err := s.Summary()
	if err != nil {
		return err
	}
	if err := n.Notify(ctx, sum); err != nil {
		slog.Warn("some webhook deliveries failed", "error", err)
	}
	return nil
}
