package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"memoryd/application/services"
	"memoryd/infrastructure/config"
	"memoryd/interfaces/http/rest/handlers"
	"memoryd/interfaces/http/rest/middleware"
	"memoryd/pkg/auth"
	"memoryd/pkg/observability"
)

// Router creates and configures the HTTP router
type Router struct {
	cfg       *config.Config
	memory    *services.MemoryService
	context   *services.ContextService
	insight   *services.InsightService
	validator *auth.JWTValidator
	metrics   *observability.Collector
	logger    *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	memory *services.MemoryService,
	context *services.ContextService,
	insight *services.InsightService,
	validator *auth.JWTValidator,
	metrics *observability.Collector,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:       cfg,
		memory:    memory,
		context:   context,
		insight:   insight,
		validator: validator,
		metrics:   metrics,
		logger:    logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.cfg.EnableMetrics {
		router.Use(middleware.Metrics(rt.metrics))
	}

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	// Probes
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.cfg.EnableMetrics {
		router.Handle("/metrics", promhttp.HandlerFor(rt.metrics.GetRegistry(), promhttp.HandlerOpts{}))
	}

	// API routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator, rt.logger))

		memoryHandler := handlers.NewMemoryHandler(rt.memory, rt.insight, rt.logger)
		r.Route("/memory", func(r chi.Router) {
			r.Post("/", memoryHandler.Store)
			r.Get("/", memoryHandler.Query)
			r.Delete("/", memoryHandler.Clear)
			r.Post("/important", memoryHandler.StoreImportant)
			r.Get("/search", memoryHandler.Search)
		})

		contextHandler := handlers.NewContextHandler(rt.context, rt.logger)
		r.Route("/context", func(r chi.Router) {
			r.Get("/daily", contextHandler.Daily)
			r.Get("/window", contextHandler.Window)
			r.Get("/conversation", contextHandler.Conversation)
		})

		insightHandler := handlers.NewInsightHandler(rt.insight, rt.logger)
		r.Route("/insights", func(r chi.Router) {
			r.Get("/summary", insightHandler.Summary)
			r.Get("/profile", insightHandler.Profile)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck verifies the configured backend is reachable
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := rt.memory.Backend().Ping(req.Context()); err != nil {
		rt.logger.Warn("Readiness check failed",
			zap.String("backend", rt.memory.Backend().Name()),
			zap.Error(err),
		)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
