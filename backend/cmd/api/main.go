package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pageza/landscaping-app/backend/internal/config"
	"github.com/pageza/landscaping-app/backend/internal/handlers"
	"github.com/pageza/landscaping-app/backend/internal/middleware"
	"github.com/pageza/landscaping-app/backend/internal/repository"
	"github.com/pageza/landscaping-app/backend/internal/scheduling"
	"github.com/pageza/landscaping-app/backend/pkg/database"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)

	// Initialize database and Redis connections
	conn, err := database.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	db := repository.NewDatabaseFromConn(conn.DB)
	repos := repository.NewRepositories(db)

	// Travel oracle: provider-first when a key is configured, haversine
	// fallback always.
	var provider scheduling.TravelProvider
	if p := scheduling.NewGoogleDistanceMatrixProvider(cfg.GoogleMapsAPIKey, cfg.TravelProviderRatePerS); p != nil {
		provider = p
	}
	oracle := scheduling.NewOracle(provider, logger)

	// Core scheduling components
	loader := scheduling.NewSnapshotLoader(repos.Job, repos.Staff, repos.Availability, oracle, logger)
	solver := scheduling.NewSolver(oracle, logger)
	persister := scheduling.NewPersister(db, repos.Appointment, repos.Job, logger)
	emergency := scheduling.NewEmergencyInserter(
		repos.Job, repos.Job, repos.Staff, repos.Availability,
		repos.Appointment, repos.Appointment, repos.Job, db, oracle, logger,
	)
	clear := scheduling.NewClearService(db, repos.Appointment, repos.Appointment, repos.ClearAudit, repos.Job, repos.Job, logger)
	capacity := scheduling.NewCapacityReporter(repos.Staff, repos.Availability, repos.Appointment, logger)

	locks := scheduling.NewRedisDateLocker(conn.RedisClient, cfg.DateLockTTL)
	gate := scheduling.NewSolveGate(cfg.SolverConcurrentCap)

	orchestrator := scheduling.NewOrchestrator(
		loader, solver, persister, emergency, clear, capacity,
		locks, gate, repos.Appointment, logger,
	)

	// Initialize handlers and middleware
	h := handlers.NewHandlers(orchestrator, cfg, logger)
	mw := middleware.NewMiddleware(cfg)
	router := h.SetupRoutes(mw)

	// Create HTTP server
	server := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   150 * time.Second, // solves can hold a request up to the 120s budget
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting API server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
