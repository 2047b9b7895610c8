package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hpungsan/thermap/internal/ops"
	"github.com/hpungsan/thermap/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewServer creates and configures the HTTP server for the ThermAP web UI.
// The sources get a shared catalog cache so concurrent requests reuse loaded
// databases.
func NewServer(db *sqlx.DB, src *ops.Sources, version, bind string, port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           NewHandler(db, src, version),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewHandler builds the routed, header-wrapped handler.
func NewHandler(db *sqlx.DB, src *ops.Sources, version string) http.Handler {
	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(fmt.Sprintf("failed to create template sub-FS: %v", err))
	}

	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("failed to create static sub-FS: %v", err))
	}

	metrics := NewMetrics()
	sources := *src
	if sources.Cache == nil {
		sources.Cache = session.NewCacheWithLoader(metrics.countingLoader(session.Load))
	}

	h := &Handlers{
		db:       db,
		src:      &sources,
		renderer: NewRenderer(templateSub, version),
		metrics:  metrics,
	}

	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/databases", http.StatusFound)
	})
	mux.HandleFunc("GET /databases", h.HandleDatabases)
	mux.HandleFunc("GET /databases/{n}", h.HandleCompose)
	mux.HandleFunc("POST /databases/{n}/compute", h.HandleCompute)
	mux.HandleFunc("GET /calculations", h.HandleCalculations)
	mux.HandleFunc("GET /calculations/{id}", h.HandleDetail)
	mux.HandleFunc("DELETE /calculations/{id}", h.HandleDelete)
	mux.Handle("GET /metrics", metrics.Handler())

	// Static file server
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return securityHeaders(mux)
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	slog.Info("ThermAP UI running", "url", "http://"+srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		slog.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		slog.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
