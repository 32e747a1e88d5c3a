package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/Broadband-Catalysts/tasker-sub001/core/models"
)

// SubtaskRepository handles database operations for subtask progress rows.
type SubtaskRepository struct {
	db *DB
}

// NewSubtaskRepository creates a new subtask repository.
func NewSubtaskRepository(db *DB) *SubtaskRepository {
	return &SubtaskRepository{db: db}
}

// RunSubtasks retrieves the subtask rows of the given runs, keyed by run ID.
func (r *SubtaskRepository) RunSubtasks(runIDs []int64) (map[int64][]models.SubtaskRun, error) {
	subtasks := make(map[int64][]models.SubtaskRun)
	if len(runIDs) == 0 {
		return subtasks, nil
	}

	placeholders := make([]string, len(runIDs))
	args := make([]interface{}, len(runIDs))
	for i, id := range runIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT subtask_run_id, run_id, subtask_name, status, items_done, items_total, updated_at
		FROM subtask_runs
		WHERE run_id IN (%s)
		ORDER BY run_id, subtask_run_id
	`, strings.Join(placeholders, ", "))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var st models.SubtaskRun
		var itemsDone sql.NullInt64
		var itemsTotal sql.NullInt64

		err := rows.Scan(
			&st.ID,
			&st.RunID,
			&st.Name,
			&st.Status,
			&itemsDone,
			&itemsTotal,
			&st.UpdatedAt,
		)
		if err != nil {
			continue
		}

		st.ItemsDone = itemsDone.Int64
		st.ItemsTotal = itemsTotal.Int64
		subtasks[st.RunID] = append(subtasks[st.RunID], st)
	}

	return subtasks, rows.Err()
}
