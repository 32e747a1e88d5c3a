package repository

import (
	"database/sql"
	"time"

	"github.com/Broadband-Catalysts/tasker-sub001/core/models"
)

// ActivityRepository reads in-flight statements from pg_stat_activity. It
// only works against a live Postgres server; other engines report
// ErrActivityUnsupported.
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new activity repository.
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// ActiveQueries retrieves the non-idle statements currently running against
// the tasker database, oldest first. The monitor's own connection is
// excluded.
func (r *ActivityRepository) ActiveQueries() ([]models.ActiveQuery, error) {
	query := `
		SELECT pid, state, query_start, query
		FROM pg_stat_activity
		WHERE datname = current_database()
			AND state <> 'idle'
			AND pid <> pg_backend_pid()
		ORDER BY query_start
	`

	rows, err := r.db.Query(query)
	if err != nil {
		if isUndefinedRelation(err) {
			return nil, ErrActivityUnsupported
		}
		return nil, err
	}
	defer rows.Close()

	now := time.Now()
	var queries []models.ActiveQuery
	for rows.Next() {
		var q models.ActiveQuery
		var state sql.NullString
		var startedAt sql.NullTime
		var text sql.NullString

		if err := rows.Scan(&q.PID, &state, &startedAt, &text); err != nil {
			continue
		}

		q.State = state.String
		q.Query = text.String
		if startedAt.Valid {
			q.StartedAt = startedAt.Time
			q.Duration = now.Sub(startedAt.Time)
			q.Seconds = q.Duration.Seconds()
		}
		queries = append(queries, q)
	}

	return queries, rows.Err()
}
