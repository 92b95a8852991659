package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gobdigital/firmador/internal/config"
	"github.com/gobdigital/firmador/internal/expediente"
	"github.com/gobdigital/firmador/internal/firma"
	"github.com/gobdigital/firmador/internal/metrics"
	"github.com/gobdigital/firmador/internal/server/middleware"
	"github.com/gobdigital/firmador/internal/store"
)

type Server struct {
	pool    *pgxpool.Pool
	config  *config.ServerEnvironment
	logger  *slog.Logger
	router  *chi.Mux
	engine  *expediente.Engine
	signing *firma.Service
	audit   *store.Store
}

// NewServer wires the validation engine, the signing service and the
// optional audit store into the HTTP router. pool and auditStore are nil
// when no database is configured.
func NewServer(
	pool *pgxpool.Pool,
	auditStore *store.Store,
	engine *expediente.Engine,
	signing *firma.Service,
	cfg *config.ServerEnvironment,
	logger *slog.Logger,
) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("validation engine is required")
	}
	if signing == nil {
		return nil, fmt.Errorf("signing service is required")
	}

	server := &Server{
		pool:    pool,
		config:  cfg,
		logger:  logger,
		router:  chi.NewRouter(),
		engine:  engine,
		signing: signing,
		audit:   auditStore,
	}

	server.setupMiddleware()
	server.registerRoutes()

	return server, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.Timeout(s.config.WriteTimeout))
	s.router.Use(middleware.RequestLogging(s.logger))
	s.router.Use(metrics.Middleware)
	s.router.Use(middleware.SecurityHeaders(s.config.Environment))
	s.router.Use(middleware.RateLimit(s.config.RateLimitRPS, s.config.RateLimitBurst))
	s.router.Use(middleware.RequestSizeLimit(s.config.MaxRequestBytes))
}

func (s *Server) registerRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/version", s.handleVersion)
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.router.Route("/validation", func(r chi.Router) {
		r.Post("/expediente", s.handleValidateExpediente)
		r.Post("/jades", s.handleValidateJades)
		r.Post("/pdfs", s.handleValidatePDFs)
	})

	s.router.Route("/signatures/jades", func(r chi.Router) {
		r.Post("/init", s.handleSignJadesInit)
		r.Post("/end", s.handleSignJadesEnd)
	})

	// audit endpoints exist only when a database is configured
	if s.audit != nil {
		s.router.Route("/validations", func(r chi.Router) {
			r.Get("/", s.handleListValidationRuns)
			r.Get("/{id}", s.handleGetValidationRun)
		})
	}
}

func (s *Server) Start(ctx context.Context) error {
	serverAddr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("service listening",
			slog.String("environment", s.config.Environment),
			slog.String("address", serverAddr))

		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.config.ServerShutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("shutting down HTTP server")

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warn("HTTP server shutdown error",
			slog.String("error", err.Error()))
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

func (s *Server) DatabaseShutdown() {
	if s.pool != nil {
		s.pool.Close()
		s.logger.Info("database connection closed")
	}
}

// Router exposes the configured router for in-process tests.
func (s *Server) Router() http.Handler {
	return s.router
}
