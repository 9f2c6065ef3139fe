package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appservices "serendipity-backend/application/services"
	"serendipity-backend/interfaces/http/rest/handlers"
	"serendipity-backend/interfaces/http/rest/middleware"
)

// Router creates and configures the HTTP router
type Router struct {
	service        *appservices.SocialGraphService
	registry       *prometheus.Registry
	allowedOrigins []string
	requestTimeout time.Duration
	logger         *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	service *appservices.SocialGraphService,
	registry *prometheus.Registry,
	allowedOrigins []string,
	requestTimeout time.Duration,
	logger *zap.Logger,
) *Router {
	return &Router{
		service:        service,
		registry:       registry,
		allowedOrigins: allowedOrigins,
		requestTimeout: requestTimeout,
		logger:         logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Timeout(rt.requestTimeout))
	router.Use(middleware.Logger(rt.logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	router.Handle("/metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CircuitBreaker(middleware.DefaultCircuitBreakerConfig("api"), rt.logger))

		eventHandler := handlers.NewEventHandler(rt.service, rt.logger)
		r.Route("/events", func(r chi.Router) {
			r.Post("/", eventHandler.CreateEvent)
			r.Get("/", eventHandler.QueryEvents)
		})
		r.Post("/connections", eventHandler.CreateConnection)
		r.Post("/pov/query", eventHandler.EventsFromPOV)

		userHandler := handlers.NewUserHandler(rt.service, rt.logger)
		r.Post("/users", userHandler.CreateUser)

		graphHandler := handlers.NewGraphHandler(rt.service, rt.logger)
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/events", eventHandler.GetUserEvents)
			r.Get("/timeline", graphHandler.GetTimeline)
		})
		r.Route("/graph", func(r chi.Router) {
			r.Get("/metrics", graphHandler.GetMetrics)
			r.Get("/export", graphHandler.ExportGraph)
			r.Post("/import", graphHandler.ImportGraph)
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck verifies graph invariants before reporting ready
func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := rt.service.Validate(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
