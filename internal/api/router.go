package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vaultline/bankfixture/internal/metrics"
)

// NewRouter creates and returns a configured Chi router.
func NewRouter(h *Handler, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(m))
	r.Use(middleware.Recoverer)

	// ── Health check ──────────────────────────────────────────────────────────
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ok(w, map[string]string{"status": "ok", "service": "bankfixture"})
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	// ── API v1 ────────────────────────────────────────────────────────────────
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/summary", h.GetSummary)

		r.Route("/customers/{id}", func(r chi.Router) {
			r.Get("/", h.GetCustomer)
			r.Get("/chats", h.GetCustomerChats)
		})

		r.Route("/accounts/{id}", func(r chi.Router) {
			r.Get("/", h.GetAccount)
			r.Get("/transactions", h.GetAccountTransactions)
		})

		r.Get("/loans/{id}", h.GetLoan)

		// Answer key; 404 unless exposed.
		r.Get("/manifest", h.GetManifest)
	})

	return r
}

// requestLogger emits one slog record per request and feeds the HTTP
// collectors. It replaces chi's default Logger.
func requestLogger(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			elapsed := time.Since(start)
			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			m.ObserveHTTP(r.Method, route, ww.Status(), elapsed)

			slog.Info("http",
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", elapsed.Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
