// Package server exposes the dashboard REST API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/yanwei/fundwatch/internal/common"
	"github.com/yanwei/fundwatch/internal/interfaces"
)

// Server wraps the HTTP server and its service dependencies.
type Server struct {
	ledger   interfaces.LedgerService
	refresh  interfaces.RefreshService
	calendar interfaces.MarketCalendar
	client   interfaces.FundClient
	logger   *common.Logger

	router *chi.Mux
	server *http.Server
}

// NewServer creates the REST API server.
func NewServer(cfg *common.Config, ledger interfaces.LedgerService, refresh interfaces.RefreshService, calendar interfaces.MarketCalendar, client interfaces.FundClient, logger *common.Logger) *Server {
	s := &Server{
		ledger:   ledger,
		refresh:  refresh,
		calendar: calendar,
		client:   client,
		logger:   logger,
		router:   chi.NewRouter(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	// The dashboard frontend may be served from a different origin
	// during development.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request")
	})
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/portfolio", s.handlePortfolio)
		r.Post("/refresh", s.handleRefresh)

		r.Route("/funds", func(r chi.Router) {
			r.Post("/", s.handleFundAdd)
			r.Put("/order", s.handleFundOrder)
			r.Route("/{code}", func(r chi.Router) {
				r.Delete("/", s.handleFundRemove)
				r.Put("/shares", s.handleSetShares)
				r.Put("/cost", s.handleSetCost)
				r.Post("/adjust", s.handleAdjust)
				r.Get("/info", s.handleFundInfo)
				r.Get("/history", s.handleFundHistory)
				r.Get("/trend", s.handleFundTrend)
			})
		})

		r.Route("/indices", func(r chi.Router) {
			r.Get("/", s.handleIndices)
			r.Post("/", s.handleIndexAdd)
			r.Put("/order", s.handleIndexOrder)
			r.Delete("/{code}", s.handleIndexRemove)
		})

		r.Get("/settings", s.handleSettingsGet)
		r.Put("/settings", s.handleSettingsPut)

		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)

		r.Get("/search", s.handleSearch)
		r.Get("/market/status", s.handleMarketStatus)
	})
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server (blocking).
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
