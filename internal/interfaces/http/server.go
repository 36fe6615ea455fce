// Package http hosts the read-only HTTP server for the tunnel API.
package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/anujsainicse/cloudflare-tunnel/internal/config"
	"github.com/anujsainicse/cloudflare-tunnel/internal/interfaces/http/handlers"
	"github.com/anujsainicse/cloudflare-tunnel/internal/net/ratelimit"
	"github.com/anujsainicse/cloudflare-tunnel/internal/options"
	"github.com/anujsainicse/cloudflare-tunnel/internal/policy"
	"github.com/anujsainicse/cloudflare-tunnel/internal/store"
)

// Server is the read-only HTTP server: routing shell plus middleware around
// the handlers.
type Server struct {
	router   *mux.Router
	server   *http.Server
	handlers *handlers.Handlers
	metrics  *MetricsRegistry
	limiter  *ratelimit.Limiter
	cfg      *config.Config
}

// NewServer wires the router, middleware, metrics and handlers from the app
// configuration.
func NewServer(cfg *config.Config) *Server {
	metrics := NewMetricsRegistry()

	overrides := store.Overrides{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		DB:       cfg.Redis.DB,
		Password: cfg.Redis.Password,
	}

	handlerManager := handlers.New(handlers.Config{
		Allowed: policy.New(cfg.AllowedTickersFile),
		Connect: func(ctx context.Context) *options.Database {
			return options.Connect(ctx, overrides)
		},
		StoreConnects: metrics.StoreConnects,
		BreakerOpen:   metrics.BreakerState,
	})

	s := &Server{
		router:   mux.NewRouter(),
		handlers: handlerManager,
		metrics:  metrics,
		limiter:  ratelimit.NewLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		cfg:      cfg,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  cfg.IdleTimeout(),
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.rateLimitMiddleware)

	// Prometheus exposition keeps its own content type.
	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	// OPTIONS is routed so the CORS middleware can answer preflights; mux
	// middleware only runs on matched routes.
	api := s.router.PathPrefix("/").Subrouter()
	api.Use(s.jsonContentTypeMiddleware)

	api.HandleFunc("/", s.handlers.Root).Methods("GET", "OPTIONS")
	api.HandleFunc("/ticker/{asset}/{expiry}", s.handlers.Ticker).Methods("GET", "OPTIONS")
	api.HandleFunc("/config", s.handlers.Config).Methods("GET", "OPTIONS")
	api.HandleFunc("/health", s.handlers.Health).Methods("GET", "OPTIONS")

	s.router.NotFoundHandler = http.HandlerFunc(s.handlers.NotFound)
}

// Router exposes the configured router for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Metrics exposes the metrics registry for tests and operators.
func (s *Server) Metrics() *MetricsRegistry {
	return s.metrics
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), "request_id", requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		route := routeTemplate(r)
		s.metrics.RequestsTotal.WithLabelValues(route, fmt.Sprint(wrapper.statusCode)).Inc()
		s.metrics.RequestDuration.WithLabelValues(route).Observe(duration.Seconds())

		requestID, _ := r.Context().Value("request_id").(string)
		log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.limiter.Allow(host) {
			s.metrics.RateLimited.Inc()
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limited"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Start runs the server until it fails or is shut down.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting tunnel API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down tunnel API server")
	return s.server.Shutdown(ctx)
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	// Cap label cardinality for unmatched paths.
	if strings.HasPrefix(r.URL.Path, "/ticker/") {
		return "/ticker/{asset}/{expiry}"
	}
	return "unmatched"
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
