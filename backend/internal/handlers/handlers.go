package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pageza/landscaping-app/backend/internal/config"
	"github.com/pageza/landscaping-app/backend/internal/middleware"
	"github.com/pageza/landscaping-app/backend/internal/scheduling"
)

// Handlers holds all HTTP handlers
type Handlers struct {
	schedule *ScheduleHandler
	config   *config.Config
}

// NewHandlers creates a new handlers instance
func NewHandlers(orchestrator *scheduling.Orchestrator, cfg *config.Config, logger *log.Logger) *Handlers {
	return &Handlers{
		schedule: NewScheduleHandler(orchestrator, logger),
		config:   cfg,
	}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(mw *middleware.Middleware) http.Handler {
	router := mux.NewRouter()

	// Apply global middleware
	router.Use(mw.Recovery)
	router.Use(mw.CORS)
	router.Use(mw.Logging)
	router.Use(mw.RateLimit)
	router.Use(mw.TenantContext)

	// Health check endpoint
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	// API v1 routes
	v1 := router.PathPrefix("/api/v1").Subrouter()
	h.schedule.RegisterRoutes(v1)

	return router
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok","service":"dispatch-api"}`))
}
