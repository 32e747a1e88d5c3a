package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Broadband-Catalysts/tasker-sub001/core/models"
)

func TestListTasksAndGetTask(t *testing.T) {
	db := openTestDB(t, extViewSQL, legacyViewSQL)
	seedStage(t, db, 1, "extract", 1)
	seedTask(t, db, 10, 1, "pull_sources", "/var/log/tasker", "pull_sources.log")
	seedTask(t, db, 11, 1, "validate_sources", "", "")

	repo := NewTaskRepository(db)

	tasks, err := repo.ListTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "pull_sources", tasks[0].Name)
	assert.Equal(t, "/var/log/tasker/pull_sources.log", tasks[0].LogFile())
	assert.Empty(t, tasks[1].LogFile())

	task, err := repo.GetTask(11)
	require.NoError(t, err)
	assert.Equal(t, "validate_sources", task.Name)
	assert.True(t, task.Enabled)

	_, err = repo.GetTask(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCurrentRunsExtendedView(t *testing.T) {
	db := openTestDB(t, extViewSQL, legacyViewSQL)
	seedStage(t, db, 1, "extract", 1)
	seedTask(t, db, 10, 1, "pull_sources", "", "")
	seedTask(t, db, 11, 1, "validate_sources", "", "")

	started := time.Now().UTC().Add(-5 * time.Minute)
	// An older completed run and a newer running one; only the newest counts.
	seedRun(t, db, 100, 10, "COMPLETED", timePtr(started.Add(-time.Hour)), timePtr(started.Add(-50*time.Minute)), 100)
	seedRun(t, db, 101, 10, "RUNNING", timePtr(started), nil, 37.5)

	repo := NewTaskRepository(db)

	runs, err := repo.CurrentRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1, "task without runs must be absent")

	run, ok := runs[10]
	require.True(t, ok)
	assert.Equal(t, int64(101), run.RunID)
	assert.Equal(t, models.StatusRunning, run.Status)
	assert.Equal(t, "worker-1", run.Host)
	assert.Equal(t, 4242, run.PID)
	assert.InDelta(t, 37.5, run.PercentComplete, 0.001)
	require.NotNil(t, run.StartedAt)
	assert.Nil(t, run.EndedAt)
	assert.False(t, repo.LegacySchema())
}

func TestCurrentRunsFallsBackToLegacyView(t *testing.T) {
	db := openTestDB(t, legacyViewSQL)
	seedStage(t, db, 1, "extract", 1)
	seedTask(t, db, 10, 1, "pull_sources", "", "")
	seedRun(t, db, 100, 10, "FAILED", timePtr(time.Now().UTC().Add(-time.Hour)), timePtr(time.Now().UTC()), 12)

	repo := NewTaskRepository(db)
	require.False(t, repo.LegacySchema())

	runs, err := repo.CurrentRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run := runs[10]
	assert.Equal(t, models.StatusFailed, run.Status)
	// Legacy rows carry no extended columns.
	assert.Empty(t, run.Host)
	assert.Zero(t, run.PID)
	assert.Zero(t, run.PercentComplete)

	// The fallback latches: later polls skip the extended view entirely.
	assert.True(t, repo.LegacySchema())

	runs, err = repo.CurrentRuns()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestCurrentRunsNoViewsAtAll(t *testing.T) {
	db := openTestDB(t)
	repo := NewTaskRepository(db)

	_, err := repo.CurrentRuns()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "v_task_status")
}
