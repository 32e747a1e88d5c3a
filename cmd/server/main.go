package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Broadband-Catalysts/tasker-sub001/api/rest/routes"
	"github.com/Broadband-Catalysts/tasker-sub001/config"
	"github.com/Broadband-Catalysts/tasker-sub001/core/logging"
	"github.com/Broadband-Catalysts/tasker-sub001/core/monitoring"
	"github.com/Broadband-Catalysts/tasker-sub001/core/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.Init(cfg.Logging)
	defer logger.Sync()

	// Initialize database
	db, err := repository.NewDB(cfg.Database.DSN())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Initialize repositories
	stageRepo := repository.NewStageRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	subtaskRepo := repository.NewSubtaskRepository(db)
	metricsRepo := repository.NewMetricsRepository(db)

	// Initialize change hub and polling reconciler
	hub := monitoring.NewHub()
	poller := monitoring.NewPoller(stageRepo, taskRepo, subtaskRepo, metricsRepo, hub, cfg.Monitor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		poller.Start(ctx)
	}()

	if schedule := cfg.Monitor.FullResyncSchedule; schedule != "" {
		if err := poller.StartResyncSchedule(schedule); err != nil {
			logger.Fatal("Invalid resync schedule", zap.String("schedule", schedule), zap.Error(err))
		}
		defer poller.StopResyncSchedule()
	}

	// Setup routes with database and poller
	r := mux.NewRouter()
	routes.SetupRoutes(r, db, poller, hub, cfg)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	if err := server.Shutdown(context.Background()); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	cancel()
	<-pollerDone
	logger.Info("Server exited")
}
