package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListStagesOrderedByPosition(t *testing.T) {
	db := openTestDB(t)
	seedStage(t, db, 3, "load", 3)
	seedStage(t, db, 1, "extract", 1)
	seedStage(t, db, 2, "transform", 2)

	repo := NewStageRepository(db)

	stages, err := repo.ListStages()
	require.NoError(t, err)
	require.Len(t, stages, 3)
	assert.Equal(t, []string{"extract", "transform", "load"},
		[]string{stages[0].Name, stages[1].Name, stages[2].Name})
}

func TestRunSubtasks(t *testing.T) {
	db := openTestDB(t)
	seedSubtask(t, db, 1, 100, "parse_headers", "COMPLETED", 50, 50)
	seedSubtask(t, db, 2, 100, "parse_rows", "RUNNING", 125, 500)
	seedSubtask(t, db, 3, 200, "upload", "NOT_STARTED", 0, 0)

	repo := NewSubtaskRepository(db)

	subtasks, err := repo.RunSubtasks([]int64{100, 200})
	require.NoError(t, err)
	require.Len(t, subtasks[100], 2)
	require.Len(t, subtasks[200], 1)
	assert.Equal(t, "parse_headers", subtasks[100][0].Name)
	assert.InDelta(t, 25.0, subtasks[100][1].Percent(), 0.001)

	// Runs outside the requested set stay out.
	subtasks, err = repo.RunSubtasks([]int64{200})
	require.NoError(t, err)
	assert.NotContains(t, subtasks, int64(100))

	subtasks, err = repo.RunSubtasks(nil)
	require.NoError(t, err)
	assert.Empty(t, subtasks)
}

func TestLatestMetricsPicksNewestRow(t *testing.T) {
	db := openTestDB(t)
	base := time.Now().UTC().Add(-10 * time.Minute)
	seedMetrics(t, db, 1, 100, base, 10, 1<<20)
	seedMetrics(t, db, 2, 100, base.Add(time.Minute), 55, 2<<20)
	seedMetrics(t, db, 3, 200, base, 5, 1<<20)

	repo := NewMetricsRepository(db)

	metrics, err := repo.LatestMetrics([]int64{100, 200, 300})
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.InDelta(t, 55, metrics[100].CPUPercent, 0.001)
	assert.Equal(t, int64(2<<20), metrics[100].RSSBytes)
	assert.NotContains(t, metrics, int64(300))

	metrics, err = repo.LatestMetrics(nil)
	require.NoError(t, err)
	assert.Empty(t, metrics)
}

func TestActiveQueriesUnsupportedOffPostgres(t *testing.T) {
	db := openTestDB(t)
	repo := NewActivityRepository(db)

	_, err := repo.ActiveQueries()
	assert.ErrorIs(t, err, ErrActivityUnsupported)
}
