// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer: it connects the SQLite store, the
// backend rules, the handlers and the middleware, and decides which URL
// patterns map to which handler and which routes need a signed-in caller.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Server → Server.New() creates:
//	  sqlite.DB → backend.Backend (implements gateway.Gateway) → handlers
//
// This is the "composition root" pattern: all dependencies are wired in one
// place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/eventhub/internal/auth"
	"github.com/sakif/eventhub/internal/backend"
	"github.com/sakif/eventhub/internal/config"
	"github.com/sakif/eventhub/internal/handler"
	"github.com/sakif/eventhub/internal/middleware"
	sqliteRepo "github.com/sakif/eventhub/internal/repository/sqlite"
)

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection and the rate limiter's sweeper
// goroutine; Close releases both.
type Server struct {
	router  *chi.Mux
	config  *config.Server
	logger  *slog.Logger
	db      *sqliteRepo.DB
	tokens  *auth.TokenService
	limiter *middleware.RateLimiter
	backend *backend.Backend

	passwords *auth.PasswordService
}

// Option customises a Server before its routes are built.
type Option func(*Server)

// WithPasswordService replaces the bcrypt settings. Tests use a low cost.
func WithPasswordService(p *auth.PasswordService) Option {
	return func(s *Server) { s.passwords = p }
}

// New opens the database at cfg.DBPath and wires every route.
//
// IMPORT ALIAS:
// repository/sqlite is imported as `sqliteRepo` so it cannot be confused with
// the sqlite driver package.
func New(cfg *config.Server, logger *slog.Logger, opts ...Option) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		logger:    logger,
		db:        db,
		tokens:    tokens,
		passwords: auth.NewPasswordService(),
		limiter: middleware.NewRateLimiter(middleware.LimiterConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		}),
	}
	for _, opt := range opts {
		opt(s)
	}

	// One sqlite.DB satisfies every repository interface.
	s.backend = backend.New(backend.Repositories{
		Events:        db,
		Registrations: db,
		Profiles:      db,
		Accounts:      db,
	}, tokens, s.passwords, logger)

	s.setupRoutes()
	return s, nil
}

// Handler exposes the router, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close stops the rate limiter and closes the database.
func (s *Server) Close() error {
	s.limiter.Stop()
	return s.db.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	POST   /auth/signup                              [rate limited]
//	POST   /auth/login                               [rate limited]
//	POST   /auth/logout
//	GET    /api/events
//	GET    /api/events/{id}
//	GET    /api/hosts/{id}/rating
//	GET    /api/profiles/{id}
//	GET    /api/events/{id}/registrations/{userID}   [auth]
//	GET    /api/users/{id}/events                    [auth]
//	POST   /api/events                               [auth, rate limited]
//	PUT    /api/events/{id}/registrations/{userID}   [auth, rate limited]
//	DELETE /api/events/{id}/registrations/{userID}   [auth, rate limited]
//	PUT    /api/profiles/{id}                        [auth, rate limited]
//	GET    /healthz
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID, so the logger can print it
// 2. RealIP, so anonymous rate limiting keys on the client and not a proxy
// 3. Logger
// 4. Recoverer, innermost so a panic is logged as a 500 by Logger
//
// "Self only" rules (your own registration, profile, my-events) are enforced
// by the backend, not the router: the route only guarantees a caller exists.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	authHandler := handler.NewAuthHandler(s.backend, s.logger, s.config.SecureCookies)
	eventHandler := handler.NewEventHandler(s.backend, s.backend, s.logger)
	profileHandler := handler.NewProfileHandler(s.backend, s.logger)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.With(s.limiter.Middleware).Post("/signup", authHandler.HandleSignUp)
		r.With(s.limiter.Middleware).Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		// Public reads.
		r.Get("/events", eventHandler.HandleList)
		r.Get("/events/{id}", eventHandler.HandleGet)
		r.Get("/hosts/{id}/rating", eventHandler.HandleHostRating)
		r.Get("/profiles/{id}", profileHandler.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(s.tokens))

			r.Get("/events/{id}/registrations/{userID}", eventHandler.HandleRegistrationStatus)
			r.Get("/users/{id}/events", eventHandler.HandleMyEvents)

			r.Group(func(r chi.Router) {
				r.Use(s.limiter.Middleware)

				r.Post("/events", eventHandler.HandleCreate)
				r.Put("/events/{id}/registrations/{userID}", eventHandler.HandleRegister)
				r.Delete("/events/{id}/registrations/{userID}", eventHandler.HandleUnregister)
				r.Put("/profiles/{id}", profileHandler.HandleUpdate)
			})
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, body := http.StatusOK, map[string]string{"status": "ok"}
	if err := s.db.Ping(); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		status, body = http.StatusServiceUnavailable, map[string]string{"status": "unavailable"}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
