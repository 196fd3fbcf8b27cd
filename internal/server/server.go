// Package server is the composition root: it builds services and handlers
// on top of a store, mounts them on a chi router, and runs the HTTP server
// with graceful shutdown.
//
//	Store → Service → Handler → Router
//
// Handlers never see the database and services never see HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "github.com/sakif/toolhub/docs" // registers the OpenAPI document
	"github.com/sakif/toolhub/internal/apperror"
	"github.com/sakif/toolhub/internal/auth"
	"github.com/sakif/toolhub/internal/config"
	"github.com/sakif/toolhub/internal/handler"
	"github.com/sakif/toolhub/internal/middleware"
	"github.com/sakif/toolhub/internal/repository"
	"github.com/sakif/toolhub/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server owns the router and the store. The store is closed when Start returns.
type Server struct {
	router   *chi.Mux
	config   config.Config
	store    repository.Store
	embedder embedding.Embedder
	provider handler.IdentityProvider
	tokens   *auth.TokenService
	registry *prometheus.Registry
	logger   *zap.Logger
}

// Option customises a Server before its routes are built.
type Option func(*Server)

// WithIdentityProvider replaces the OIDC provider built from config.
func WithIdentityProvider(p handler.IdentityProvider) Option {
	return func(s *Server) { s.provider = p }
}

// New wires every layer on top of store. The session secret is checked here
// so a misconfigured server never starts listening.
func New(cfg config.Config, store repository.Store, embedder embedding.Embedder, logger *zap.Logger, opts ...Option) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.Session.Secret, cfg.Session.TTL)
	if err != nil {
		return nil, apperror.Config("SESSION_SECRET_KEY", err.Error())
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		store:    store,
		embedder: embedder,
		provider: auth.NewOIDCProvider(cfg.OAuth.Issuer, cfg.OAuth.ClientID, cfg.OAuth.ClientSecret),
		tokens:   tokens,
		registry: registry,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes registers middleware and routes.
//
// Middleware order: request id first so every later layer can log it,
// Recoverer innermost of the observability layers so a panic still shows up
// as a logged and counted 500.
func (s *Server) setupRoutes() {
	metrics := middleware.NewMetrics(s.registry)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(metrics.Middleware)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.config.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	toolService := service.NewToolService(s.store, s.logger)
	searchService := service.NewSearchService(s.store, s.embedder, s.logger)
	authService := service.NewAuthService(s.store, s.tokens, s.logger)

	toolHandler := handler.NewToolHandler(toolService, searchService, s.logger)
	authHandler := handler.NewAuthHandler(s.provider, authService, s.tokens, handler.AuthConfig{
		FrontendURL:   s.config.FrontendURL,
		RedirectURL:   s.config.OAuth.RedirectURL,
		SecureCookies: s.config.Session.Secure,
	}, s.logger)
	healthHandler := handler.NewHealthHandler(s.store, s.logger)

	s.router.Route("/tools", toolHandler.Routes)

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/login", authHandler.HandleLogin)
		r.Get("/callback", authHandler.HandleCallback)
		r.Get("/logout", authHandler.HandleLogout)
		r.With(auth.RequireAuth(s.tokens)).Get("/profile", authHandler.HandleProfile)
	})

	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	s.router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

// Start listens until SIGINT/SIGTERM, then drains in-flight requests for up
// to 30 seconds and closes the store.
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			zap.Int("port", s.config.Port),
			zap.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			zap.String("database", s.config.DB.Driver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
