package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := NewAPIConfig(os.Stdout)
	if err != nil {
		newLogger(os.Stderr, false).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	cfg.logger.Debug("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cfg.connectCache(ctx); err != nil {
		cfg.logger.Error("answer cache setup failed", "error", err)
		os.Exit(1)
	}
	if err := cfg.buildController(ctx); err != nil {
		cfg.logger.Error("grounding service setup failed", "error", err)
		os.Exit(1)
	}

	// The header shows "Locating..." until this settles.
	go cfg.controller.Init(ctx)

	listener, err := net.Listen("tcp", ":"+cfg.port)
	if err != nil {
		cfg.logger.Error("server startup failed", "error", err)
		os.Exit(1)
	}

	cfg.logger.Info("starting server", "port", cfg.port)
	if err := serve(ctx, cfg.newServer(), listener, cfg.logger); err != nil {
		cfg.logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	cfg.logger.Info("server stopped")
}

// shutdownTimeout bounds how long in-flight queries may keep the process alive
// after a termination signal.
const shutdownTimeout = 60 * time.Second

// newServer returns the HTTP server. Event streams are closed as soon as
// shutdown begins so they do not hold it open.
func (cfg *apiConfig) newServer() *http.Server {
	server := &http.Server{
		Handler:           cfg.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	server.RegisterOnShutdown(cfg.closeEventStreams)
	return server
}

// serve runs server on listener until ctx is done, then stops accepting
// connections and waits for in-flight requests, including running queries.
func serve(ctx context.Context, server *http.Server, listener net.Listener, logger *slog.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown incomplete: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// routes registers every endpoint behind the metrics and CORS middleware.
func (cfg *apiConfig) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", cfg.handlerIndex)
	mux.HandleFunc("/api/state", cfg.handlerState)
	mux.HandleFunc("/api/events", cfg.handlerEvents)
	mux.HandleFunc("/api/query", cfg.handlerQuery)
	mux.HandleFunc("/api/config", cfg.handlerConfig)
	mux.Handle("/metrics", promhttp.Handler())

	if cfg.devMode {
		cfg.logger.Debug("development mode enabled. Registering /dev/flush-cache endpoint.")
		mux.HandleFunc("/dev/flush-cache", cfg.handlerFlushCache)
	}

	return metricsMiddleware(corsMiddleware(mux))
}
