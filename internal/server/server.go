// Package server provides the HTTP server and routing for stock-vision.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/ANGELCJR/stock-vision-sub000/internal/config"
	"github.com/ANGELCJR/stock-vision-sub000/internal/di"
	analyticshandlers "github.com/ANGELCJR/stock-vision-sub000/internal/modules/analytics/handlers"
	exporthandlers "github.com/ANGELCJR/stock-vision-sub000/internal/modules/export/handlers"
	insightshandlers "github.com/ANGELCJR/stock-vision-sub000/internal/modules/insights/handlers"
	markethandlers "github.com/ANGELCJR/stock-vision-sub000/internal/modules/market/handlers"
	newshandlers "github.com/ANGELCJR/stock-vision-sub000/internal/modules/news/handlers"
	portfoliohandlers "github.com/ANGELCJR/stock-vision-sub000/internal/modules/portfolio/handlers"
)

// requestTimeout bounds every non-streaming request.
const requestTimeout = 60 * time.Second

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container
	Version   string
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	container      *di.Container
	auth           *Authenticator
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	c := cfg.Container

	var jobs JobRegistry
	if c.Scheduler != nil {
		jobs = c.Scheduler
	}
	var backups BackupRunner
	if c.BackupService != nil {
		backups = c.BackupService
	}

	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg.Config,
		container:      c,
		auth:           NewAuthenticator(cfg.Config.Auth, cfg.Log),
		systemHandlers: NewSystemHandlers(c.DB, jobs, backups, cfg.Version, cfg.Log),
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.Log)

	// WriteTimeout stays zero: quote streams are long-lived and every other
	// route is bounded by the timeout middleware.
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Config.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition", "X-Stale-Symbols"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes(log zerolog.Logger) {
	c := s.container

	// Health check
	s.router.Get("/health", s.systemHandlers.HandleHealth)

	portfolioHandler := portfoliohandlers.NewHandler(c.PortfolioService, log)
	marketHandler := markethandlers.NewHandler(c.MarketService, s.cfg.Server.AllowedOrigins, log)
	analyticsHandler := analyticshandlers.NewHandler(c.AnalyticsService, log)
	newsHandler := newshandlers.NewHandler(c.NewsService, log)
	insightsHandler := insightshandlers.NewHandler(c.InsightsService, log)
	exportHandler := exporthandlers.NewHandler(c.ExportService, log)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.auth.Middleware)

		// Quote streams hold the connection open; they skip the timeout and
		// compression middleware.
		marketHandler.RegisterStreamRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			if !s.cfg.Server.DevMode {
				r.Use(middleware.Compress(5))
			}

			portfolioHandler.RegisterRoutes(r)
			marketHandler.RegisterRoutes(r)
			analyticsHandler.RegisterRoutes(r)
			newsHandler.RegisterRoutes(r)
			insightsHandler.RegisterRoutes(r)
			exportHandler.RegisterRoutes(r)

			r.Route("/system", func(r chi.Router) {
				r.Get("/status", s.systemHandlers.HandleSystemStatus)
				r.Get("/jobs", s.systemHandlers.HandleListJobs)
				r.Post("/jobs/{name}", s.systemHandlers.HandleRunJob)
				r.Get("/backups", s.systemHandlers.HandleListBackups)
				r.Post("/backups", s.systemHandlers.HandleTriggerBackup)
			})
		})
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}` + "\n"))
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Server.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
