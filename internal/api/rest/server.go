package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/complyvault/evidence-ledger-backend/internal/infrastructure/config"
)

// Server wraps the HTTP server with graceful shutdown.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	http   *http.Server
}

// NewServer builds the router and middleware chain.
func NewServer(cfg *config.Config, logger *slog.Logger, handler *Handler, registry *prometheus.Registry) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/commands", handler.handleSubmitCommand)
	mux.HandleFunc("POST /api/v1/contracts", handler.handleCreateContract)
	mux.HandleFunc("POST /api/v1/evidence", handler.handleRegisterEvidence)
	mux.HandleFunc("GET /api/v1/ledger/status", handler.handleStatus)
	mux.HandleFunc("GET /api/v1/quarantine/export", handler.handleQuarantineExport)
	mux.HandleFunc("POST /api/v1/sweeper/run", handler.handleSweeperRun)
	mux.HandleFunc("GET /healthz", handler.handleHealthz)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	root := chain(mux,
		recoveryMiddleware(logger),
		requestIDMiddleware,
		loggingMiddleware(logger),
		rateLimitMiddleware(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize),
	)

	return &Server{
		cfg:    cfg,
		logger: logger,
		http: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      root,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
}

// Start serves until SIGINT/SIGTERM, then drains within the shutdown timeout.
func (s *Server) Start() error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		s.logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
