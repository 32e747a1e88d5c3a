package repository

import (
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/Broadband-Catalysts/tasker-sub001/core/models"
)

// TaskRepository handles database operations for registered tasks and their
// current runs.
type TaskRepository struct {
	db *DB

	// legacy latches to true after v_task_status_ext is found missing so
	// every later poll goes straight to the older v_task_status view.
	legacy atomic.Bool
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// LegacySchema reports whether the repository has fallen back to the older
// v_task_status view. Rows read in legacy mode carry no host, pid, progress
// or error columns.
func (r *TaskRepository) LegacySchema() bool {
	return r.legacy.Load()
}

// ListTasks retrieves every registered task, enabled or not, ordered by
// stage and registration.
func (r *TaskRepository) ListTasks() ([]models.Task, error) {
	query := `
		SELECT task_id, task_name, stage_id, log_path, log_filename, enabled, registered_at
		FROM tasks
		ORDER BY stage_id, task_id
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			continue
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// GetTask retrieves a single task by ID.
func (r *TaskRepository) GetTask(id int64) (*models.Task, error) {
	query := `
		SELECT task_id, task_name, stage_id, log_path, log_filename, enabled, registered_at
		FROM tasks
		WHERE task_id = $1
	`

	task, err := scanTask(r.db.QueryRow(query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func scanTask(scan func(dest ...interface{}) error) (models.Task, error) {
	var task models.Task
	var logPath sql.NullString
	var logFilename sql.NullString

	err := scan(
		&task.ID,
		&task.Name,
		&task.StageID,
		&logPath,
		&logFilename,
		&task.Enabled,
		&task.RegisteredAt,
	)
	if err != nil {
		return task, err
	}

	if logPath.Valid {
		task.LogPath = logPath.String
	}
	if logFilename.Valid {
		task.LogFilename = logFilename.String
	}
	return task, nil
}

// CurrentRuns retrieves the latest run of every task, keyed by task ID.
// Tasks that have never run are absent from the result. The extended view
// is preferred; when it does not exist in this database the repository
// latches onto the older v_task_status view for the rest of the process.
func (r *TaskRepository) CurrentRuns() (map[int64]models.TaskRun, error) {
	if !r.legacy.Load() {
		runs, err := r.currentRunsExt()
		if err == nil {
			return runs, nil
		}
		if !isUndefinedRelation(err) {
			return nil, err
		}
		r.legacy.Store(true)
	}
	return r.currentRunsLegacy()
}

func (r *TaskRepository) currentRunsExt() (map[int64]models.TaskRun, error) {
	query := `
		SELECT task_id, run_id, status, started_at, ended_at, updated_at,
			host, pid, percent_complete, error_text
		FROM v_task_status_ext
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make(map[int64]models.TaskRun)
	for rows.Next() {
		var run models.TaskRun
		var startedAt sql.NullTime
		var endedAt sql.NullTime
		var host sql.NullString
		var pid sql.NullInt64
		var percent sql.NullFloat64
		var errorText sql.NullString

		err := rows.Scan(
			&run.TaskID,
			&run.RunID,
			&run.Status,
			&startedAt,
			&endedAt,
			&run.UpdatedAt,
			&host,
			&pid,
			&percent,
			&errorText,
		)
		if err != nil {
			continue
		}

		if startedAt.Valid {
			run.StartedAt = &startedAt.Time
		}
		if endedAt.Valid {
			run.EndedAt = &endedAt.Time
		}
		if host.Valid {
			run.Host = host.String
		}
		if pid.Valid {
			run.PID = int(pid.Int64)
		}
		if percent.Valid {
			run.PercentComplete = percent.Float64
		}
		if errorText.Valid {
			run.ErrorText = errorText.String
		}

		runs[run.TaskID] = run
	}

	return runs, rows.Err()
}

func (r *TaskRepository) currentRunsLegacy() (map[int64]models.TaskRun, error) {
	query := `
		SELECT task_id, run_id, status, started_at, ended_at, updated_at
		FROM v_task_status
	`

	rows, err := r.db.Query(query)
	if err != nil {
		if isUndefinedRelation(err) {
			return nil, fmt.Errorf("neither v_task_status_ext nor v_task_status exists: %w", err)
		}
		return nil, err
	}
	defer rows.Close()

	runs := make(map[int64]models.TaskRun)
	for rows.Next() {
		var run models.TaskRun
		var startedAt sql.NullTime
		var endedAt sql.NullTime

		err := rows.Scan(
			&run.TaskID,
			&run.RunID,
			&run.Status,
			&startedAt,
			&endedAt,
			&run.UpdatedAt,
		)
		if err != nil {
			continue
		}

		if startedAt.Valid {
			run.StartedAt = &startedAt.Time
		}
		if endedAt.Valid {
			run.EndedAt = &endedAt.Time
		}

		runs[run.TaskID] = run
	}

	return runs, rows.Err()
}
