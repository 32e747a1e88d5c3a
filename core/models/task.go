package models

import (
	"path/filepath"
	"time"
)

// RunStatus represents the lifecycle status of a task or subtask run.
// The tasker engine moves runs NOT_STARTED -> STARTED -> RUNNING and then
// to COMPLETED or FAILED; the monitor never writes these, it only reads them.
type RunStatus string

const (
	StatusNotStarted RunStatus = "NOT_STARTED"
	StatusStarted    RunStatus = "STARTED"
	StatusRunning    RunStatus = "RUNNING"
	StatusCompleted  RunStatus = "COMPLETED"
	StatusFailed     RunStatus = "FAILED"
)

// Known reports whether s is one of the statuses the tasker schema defines.
func (s RunStatus) Known() bool {
	switch s {
	case StatusNotStarted, StatusStarted, StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the run has finished, successfully or not.
func (s RunStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsActive reports whether a process is expected to be working on the run.
func (s RunStatus) IsActive() bool {
	return s == StatusStarted || s == StatusRunning
}

// StageStatus is the status derived for a stage from its task statuses.
// It uses the same vocabulary as RunStatus.
type StageStatus = RunStatus

// Stage is a named phase of the pipeline containing one or more tasks.
type Stage struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// Task is a unit of work registered under a stage. Log location columns
// follow the tasker convention: log_path joined with log_filename.
type Task struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	StageID      int64     `json:"stage_id"`
	LogPath      string    `json:"log_path,omitempty"`
	LogFilename  string    `json:"log_filename,omitempty"`
	Enabled      bool      `json:"enabled"`
	RegisteredAt time.Time `json:"registered_at"`
}

// LogFile returns the full path of the task's log file, or "" when the task
// has no log configured.
func (t Task) LogFile() string {
	if t.LogPath == "" || t.LogFilename == "" {
		return ""
	}
	return filepath.Join(t.LogPath, t.LogFilename)
}

// TaskRun is one execution record of a task.
type TaskRun struct {
	RunID           int64      `json:"run_id"`
	TaskID          int64      `json:"task_id"`
	Status          RunStatus  `json:"status"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Host            string     `json:"host,omitempty"`
	PID             int        `json:"pid,omitempty"`
	PercentComplete float64    `json:"percent_complete"`
	ErrorText       string     `json:"error_text,omitempty"`
}

// SubtaskRun is a finer-grained progress unit within a task run,
// optionally tracking item counts.
type SubtaskRun struct {
	ID         int64     `json:"id"`
	RunID      int64     `json:"run_id"`
	Name       string    `json:"name"`
	Status     RunStatus `json:"status"`
	ItemsDone  int64     `json:"items_done"`
	ItemsTotal int64     `json:"items_total"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Percent returns subtask completion as 0-100, or 0 when no total is tracked.
func (s SubtaskRun) Percent() float64 {
	if s.ItemsTotal <= 0 {
		return 0
	}
	return float64(s.ItemsDone) / float64(s.ItemsTotal) * 100
}

// DeriveStageStatus computes a stage's status from the current statuses of
// its tasks. Any failure wins; any active task means the stage is running;
// a mix of completed and not-started tasks also renders RUNNING because the
// stage is mid-flight. A stage with no tasks is NOT_STARTED.
func DeriveStageStatus(statuses []RunStatus) StageStatus {
	if len(statuses) == 0 {
		return StatusNotStarted
	}

	var completed, notStarted, active int
	for _, s := range statuses {
		switch {
		case s == StatusFailed:
			return StatusFailed
		case s.IsActive():
			active++
		case s == StatusCompleted:
			completed++
		default:
			// NOT_STARTED and unknown statuses both count as not started yet.
			notStarted++
		}
	}

	switch {
	case active > 0:
		return StatusRunning
	case completed > 0 && notStarted > 0:
		return StatusRunning
	case completed == len(statuses):
		return StatusCompleted
	default:
		return StatusNotStarted
	}
}
