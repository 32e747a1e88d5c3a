package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/Broadband-Catalysts/tasker-sub001/core/models"
	"github.com/Broadband-Catalysts/tasker-sub001/core/monitoring"
)

// TaskHandler serves task state from the latest snapshot.
type TaskHandler struct {
	poller *monitoring.Poller
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(poller *monitoring.Poller) *TaskHandler {
	return &TaskHandler{poller: poller}
}

// ListTasks handles GET /v1/tasks
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	snap := h.poller.Latest()
	if snap == nil {
		writeErr(w, http.StatusServiceUnavailable, "No snapshot available yet")
		return
	}

	statusFilter := models.RunStatus(strings.ToUpper(r.URL.Query().Get("status")))

	items := make([]*monitoring.TaskView, 0, snap.TaskCount())
	for _, tv := range snap.Tasks() {
		if statusFilter != "" && tv.Status != statusFilter {
			continue
		}
		items = append(items, tv)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"revision": snap.Revision,
		"count":    len(items),
		"items":    items,
	})
}

// GetTask handles GET /v1/tasks/{id}
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid task id")
		return
	}

	snap := h.poller.Latest()
	if snap == nil {
		writeErr(w, http.StatusServiceUnavailable, "No snapshot available yet")
		return
	}

	tv := snap.TaskByID(taskID)
	if tv == nil {
		writeErr(w, http.StatusNotFound, "Task not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"revision": snap.Revision,
		"task":     tv,
	})
}

// GetOverview handles GET /v1/overview
func (h *TaskHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	snap := h.poller.Latest()
	if snap == nil {
		writeErr(w, http.StatusServiceUnavailable, "No snapshot available yet")
		return
	}

	var totals monitoring.StatusCounts
	staleReporters := 0
	stages := make([]*monitoring.StageSummary, 0, len(snap.Stages))
	for i := range snap.Stages {
		sv := &snap.Stages[i]
		stages = append(stages, sv.Summary())
		totals.NotStarted += sv.Counts.NotStarted
		totals.Started += sv.Counts.Started
		totals.Running += sv.Counts.Running
		totals.Completed += sv.Counts.Completed
		totals.Failed += sv.Counts.Failed
		for _, tv := range sv.Tasks {
			if tv.ReporterStale {
				staleReporters++
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"revision":      snap.Revision,
		"taken_at":      snap.TakenAt,
		"legacy_schema": snap.LegacySchema,
		"tasks": map[string]interface{}{
			"total":       snap.TaskCount(),
			"not_started": totals.NotStarted,
			"started":     totals.Started,
			"running":     totals.Running,
			"completed":   totals.Completed,
			"failed":      totals.Failed,
		},
		"stages":          stages,
		"stale_reporters": staleReporters,
		"poller":          h.poller.Stats(),
	})
}
