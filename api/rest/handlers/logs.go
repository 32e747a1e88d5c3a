package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/Broadband-Catalysts/tasker-sub001/core/logtail"
	"github.com/Broadband-Catalysts/tasker-sub001/core/models"
	"github.com/Broadband-Catalysts/tasker-sub001/core/repository"
)

// LogHandler serves task log files located through the log_path and
// log_filename columns.
type LogHandler struct {
	taskRepo  *repository.TaskRepository
	tailLines int
	keepalive time.Duration
}

// NewLogHandler creates a new log handler
func NewLogHandler(taskRepo *repository.TaskRepository, tailLines int, keepalive time.Duration) *LogHandler {
	return &LogHandler{
		taskRepo:  taskRepo,
		tailLines: tailLines,
		keepalive: keepalive,
	}
}

// resolveLogFile looks the task up and returns its log path, writing the
// error response itself when there is nothing to read.
func (h *LogHandler) resolveLogFile(w http.ResponseWriter, r *http.Request) (models.Task, string, bool) {
	taskID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid task id")
		return models.Task{}, "", false
	}

	task, err := h.taskRepo.GetTask(taskID)
	if errors.Is(err, repository.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "Task not found")
		return models.Task{}, "", false
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "Failed to load task: "+err.Error())
		return models.Task{}, "", false
	}

	logFile := task.LogFile()
	if logFile == "" {
		writeErr(w, http.StatusNotFound, "No log file configured for this task")
		return models.Task{}, "", false
	}
	return task, logFile, true
}

func (h *LogHandler) requestedLines(r *http.Request) int {
	lines := h.tailLines
	if param := r.URL.Query().Get("lines"); param != "" {
		fmt.Sscanf(param, "%d", &lines)
	}
	if lines < 0 {
		lines = 0
	}
	return lines
}

// GetTaskLog handles GET /v1/tasks/{id}/log
func (h *LogHandler) GetTaskLog(w http.ResponseWriter, r *http.Request) {
	task, logFile, ok := h.resolveLogFile(w, r)
	if !ok {
		return
	}

	lines, err := logtail.Tail(logFile, h.requestedLines(r))
	if errors.Is(err, logtail.ErrNoLogFile) {
		writeErr(w, http.StatusNotFound, "Log file not found: "+logFile)
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "Failed to read log: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"task_id":   task.ID,
		"task_name": task.Name,
		"path":      logFile,
		"count":     len(lines),
		"lines":     lines,
	})
}

// StreamTaskLog handles GET /v1/tasks/{id}/log/stream
func (h *LogHandler) StreamTaskLog(w http.ResponseWriter, r *http.Request) {
	_, logFile, ok := h.resolveLogFile(w, r)
	if !ok {
		return
	}

	follower, err := logtail.Follow(logFile, h.requestedLines(r))
	if errors.Is(err, logtail.ErrNoLogFile) {
		writeErr(w, http.StatusNotFound, "Log file not found: "+logFile)
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "Failed to follow log: "+err.Error())
		return
	}
	defer follower.Close()

	sse := newSSEWriter(w)
	if sse == nil {
		writeErr(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case line, open := <-follower.Lines():
			if !open {
				return
			}
			sse.line(line)
		case <-keepalive.C:
			sse.comment("keepalive")
		}
	}
}
