// Package server provides the HTTP server and routing for the analysis and
// advisory service.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/sentinel/internal/backtest"
	analysishandlers "github.com/aristath/sentinel/internal/modules/analysis/handlers"
	backtesthandlers "github.com/aristath/sentinel/internal/modules/backtest/handlers"
	"github.com/aristath/sentinel/internal/orchestrator"
	"github.com/aristath/sentinel/internal/rules"
)

// Config holds everything New needs to assemble the HTTP server: the
// business-logic collaborators it mounts routes for, and basic serving
// knobs.
type Config struct {
	Log     zerolog.Logger
	Port    int
	DevMode bool

	Orchestrator *orchestrator.Orchestrator
	Registry     *rules.Registry
	RuleLister   analysishandlers.RuleLister

	BacktestManager  *backtest.Manager
	BacktestFetch    backtest.OHLCVFetcher
	BacktestClient   backtest.JobClient
	BacktestLoad     backtest.ReportLoader
	PollingInterval  time.Duration
	PollingDeadline  time.Duration
}

// Server wraps the chi router and the underlying *http.Server.
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
}

// New builds a Server with all routes mounted, ready for Start.
func New(cfg Config) *Server {
	router := chi.NewRouter()

	s := &Server{
		router: router,
		log:    cfg.Log.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         addr(cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

func addr(port int) string {
	if port <= 0 {
		port = 8000
	}
	return ":" + strconv.Itoa(port)
}

// setupMiddleware configures the middleware chain.
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// loggingMiddleware emits one structured log line per request.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request handled")
	})
}

// setupRoutes mounts the health endpoint and the analysis/advisor/backtest
// surfaces under /v1.
func (s *Server) setupRoutes(cfg Config) {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/internal/health", s.handleResourceUsage)

		analysishandlers.NewHandler(cfg.Orchestrator, cfg.Registry, cfg.RuleLister, s.log).RegisterRoutes(r)
		backtesthandlers.NewHandler(
			cfg.BacktestManager, cfg.BacktestFetch, cfg.BacktestClient, cfg.BacktestLoad,
			cfg.PollingInterval, cfg.PollingDeadline, s.log,
		).RegisterRoutes(r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleResourceUsage reports process/host resource usage, grounded in the
// gopsutil-backed system status checks the teacher exposes for its own
// operational dashboard.
func (s *Server) handleResourceUsage(w http.ResponseWriter, r *http.Request) {
	type usage struct {
		CPUPercent   float64 `json:"cpu_percent"`
		MemUsedBytes uint64  `json:"mem_used_bytes"`
		MemTotalBytes uint64 `json:"mem_total_bytes"`
		Goroutines   int     `json:"goroutines"`
	}

	out := usage{Goroutines: runtime.NumGoroutine()}

	if percents, err := cpu.PercentWithContext(r.Context(), 0, false); err == nil && len(percents) > 0 {
		out.CPUPercent = percents[0]
	} else if err != nil {
		s.log.Warn().Err(err).Msg("failed to sample cpu usage")
	}

	if vm, err := mem.VirtualMemoryWithContext(r.Context()); err == nil {
		out.MemUsedBytes = vm.Used
		out.MemTotalBytes = vm.Total
	} else {
		s.log.Warn().Err(err).Msg("failed to sample memory usage")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.log.Error().Err(err).Msg("failed to encode resource usage response")
	}
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
