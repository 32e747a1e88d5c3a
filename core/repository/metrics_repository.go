package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/Broadband-Catalysts/tasker-sub001/core/models"
)

// MetricsRepository handles database operations for process reporter rows.
type MetricsRepository struct {
	db *DB
}

// NewMetricsRepository creates a new metrics repository.
func NewMetricsRepository(db *DB) *MetricsRepository {
	return &MetricsRepository{db: db}
}

// LatestMetrics retrieves the newest process metrics row of each given run,
// keyed by run ID. Runs without any metrics are absent from the result.
func (r *MetricsRepository) LatestMetrics(runIDs []int64) (map[int64]models.ProcessMetrics, error) {
	metrics := make(map[int64]models.ProcessMetrics)
	if len(runIDs) == 0 {
		return metrics, nil
	}

	placeholders := make([]string, len(runIDs))
	args := make([]interface{}, len(runIDs))
	for i, id := range runIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT m.run_id, m.recorded_at, m.cpu_percent, m.rss_bytes, m.child_count
		FROM process_metrics m
		JOIN (
			SELECT run_id, MAX(metric_id) AS metric_id
			FROM process_metrics
			WHERE run_id IN (%s)
			GROUP BY run_id
		) latest ON latest.metric_id = m.metric_id
	`, strings.Join(placeholders, ", "))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m models.ProcessMetrics
		var cpu sql.NullFloat64
		var rss sql.NullInt64
		var children sql.NullInt64

		err := rows.Scan(
			&m.RunID,
			&m.RecordedAt,
			&cpu,
			&rss,
			&children,
		)
		if err != nil {
			continue
		}

		m.CPUPercent = cpu.Float64
		m.RSSBytes = rss.Int64
		m.ChildCount = int(children.Int64)
		metrics[m.RunID] = m
	}

	return metrics, rows.Err()
}
