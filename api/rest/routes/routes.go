package routes

import (
	"github.com/gorilla/mux"

	"github.com/Broadband-Catalysts/tasker-sub001/api/rest/handlers"
	"github.com/Broadband-Catalysts/tasker-sub001/config"
	"github.com/Broadband-Catalysts/tasker-sub001/core/monitoring"
	"github.com/Broadband-Catalysts/tasker-sub001/core/repository"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *mux.Router, db *repository.DB, poller *monitoring.Poller, hub *monitoring.Hub, cfg *config.Config) {
	taskRepo := repository.NewTaskRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	exporter := monitoring.NewMetricsExporter(poller, hub)

	stageHandler := handlers.NewStageHandler(poller)
	taskHandler := handlers.NewTaskHandler(poller)
	logHandler := handlers.NewLogHandler(taskRepo, cfg.Monitor.LogTailLines, cfg.Server.SSEKeepalive)
	eventHandler := handlers.NewEventHandler(poller, hub, cfg.Server.SSEKeepalive)
	activityHandler := handlers.NewActivityHandler(activityRepo)
	systemHandler := handlers.NewSystemHandler(poller, exporter, cfg.Monitor.MinPollInterval)

	api := r.PathPrefix("/v1").Subrouter()

	// Stage endpoints
	api.HandleFunc("/stages", stageHandler.ListStages).Methods("GET")
	api.HandleFunc("/stages/{id}/tasks", stageHandler.GetStageTasks).Methods("GET")

	// Task endpoints
	api.HandleFunc("/tasks", taskHandler.ListTasks).Methods("GET")
	api.HandleFunc("/tasks/{id}", taskHandler.GetTask).Methods("GET")
	api.HandleFunc("/tasks/{id}/log", logHandler.GetTaskLog).Methods("GET")
	api.HandleFunc("/tasks/{id}/log/stream", logHandler.StreamTaskLog).Methods("GET")

	// Dashboard endpoints
	api.HandleFunc("/overview", taskHandler.GetOverview).Methods("GET")
	api.HandleFunc("/activity", activityHandler.GetActivity).Methods("GET")
	api.HandleFunc("/events", eventHandler.StreamEvents).Methods("GET")
	api.HandleFunc("/refresh", systemHandler.TriggerRefresh).Methods("POST")

	// Operational endpoints
	r.HandleFunc("/healthz", systemHandler.HealthCheck).Methods("GET")
	r.HandleFunc("/metrics", systemHandler.GetMetrics).Methods("GET")
}
