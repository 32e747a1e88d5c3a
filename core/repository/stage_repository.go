package repository

import (
	"github.com/Broadband-Catalysts/tasker-sub001/core/models"
)

// StageRepository handles database operations for pipeline stages.
type StageRepository struct {
	db *DB
}

// NewStageRepository creates a new stage repository.
func NewStageRepository(db *DB) *StageRepository {
	return &StageRepository{db: db}
}

// ListStages retrieves all stages in pipeline order.
func (r *StageRepository) ListStages() ([]models.Stage, error) {
	query := `
		SELECT stage_id, stage_name, position
		FROM stages
		ORDER BY position, stage_id
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []models.Stage
	for rows.Next() {
		var stage models.Stage
		if err := rows.Scan(&stage.ID, &stage.Name, &stage.Position); err != nil {
			continue
		}
		stages = append(stages, stage)
	}

	return stages, rows.Err()
}
