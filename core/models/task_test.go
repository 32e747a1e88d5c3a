package models

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStageStatus(t *testing.T) {
	cases := []struct {
		name     string
		statuses []RunStatus
		want     StageStatus
	}{
		{"empty stage", nil, StatusNotStarted},
		{"all not started", []RunStatus{StatusNotStarted, StatusNotStarted}, StatusNotStarted},
		{"all completed", []RunStatus{StatusCompleted, StatusCompleted}, StatusCompleted},
		{"single completed", []RunStatus{StatusCompleted}, StatusCompleted},
		{"one running", []RunStatus{StatusCompleted, StatusRunning}, StatusRunning},
		{"one started", []RunStatus{StatusNotStarted, StatusStarted}, StatusRunning},
		{"failure wins over running", []RunStatus{StatusRunning, StatusFailed}, StatusFailed},
		{"failure wins over completed", []RunStatus{StatusCompleted, StatusFailed}, StatusFailed},
		{"mid-flight mix renders running", []RunStatus{StatusCompleted, StatusNotStarted}, StatusRunning},
		{"unknown status counts as not started", []RunStatus{RunStatus("WEIRD"), StatusNotStarted}, StatusNotStarted},
		{"unknown plus completed is mid-flight", []RunStatus{RunStatus("WEIRD"), StatusCompleted}, StatusRunning},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveStageStatus(tc.statuses))
		})
	}
}

func TestRunStatusPredicates(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())

	assert.True(t, StatusRunning.IsActive())
	assert.True(t, StatusStarted.IsActive())
	assert.False(t, StatusCompleted.IsActive())
	assert.False(t, StatusNotStarted.IsActive())

	assert.True(t, StatusNotStarted.Known())
	assert.False(t, RunStatus("BOGUS").Known())
}

func TestTaskLogFile(t *testing.T) {
	task := Task{LogPath: "/var/log/tasker", LogFilename: "ingest.log"}
	assert.Equal(t, filepath.Join("/var/log/tasker", "ingest.log"), task.LogFile())

	assert.Empty(t, Task{LogPath: "/var/log/tasker"}.LogFile())
	assert.Empty(t, Task{LogFilename: "ingest.log"}.LogFile())
	assert.Empty(t, Task{}.LogFile())
}

func TestSubtaskPercent(t *testing.T) {
	assert.Equal(t, 0.0, SubtaskRun{ItemsDone: 5}.Percent())
	assert.Equal(t, 50.0, SubtaskRun{ItemsDone: 5, ItemsTotal: 10}.Percent())
	assert.Equal(t, 100.0, SubtaskRun{ItemsDone: 10, ItemsTotal: 10}.Percent())
}

func TestReporterStale(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	started := now.Add(-10 * time.Minute)
	threshold := 90 * time.Second

	t.Run("fresh heartbeat", func(t *testing.T) {
		m := &ProcessMetrics{RecordedAt: now.Add(-10 * time.Second)}
		run := TaskRun{Status: StatusRunning, StartedAt: &started}
		assert.False(t, ReporterStale(run, m, now, threshold))
	})

	t.Run("old heartbeat", func(t *testing.T) {
		m := &ProcessMetrics{RecordedAt: now.Add(-5 * time.Minute)}
		run := TaskRun{Status: StatusRunning, StartedAt: &started}
		assert.True(t, ReporterStale(run, m, now, threshold))
	})

	t.Run("no heartbeat ever, run is old", func(t *testing.T) {
		run := TaskRun{Status: StatusRunning, StartedAt: &started}
		assert.True(t, ReporterStale(run, nil, now, threshold))
	})

	t.Run("no heartbeat, run inside grace period", func(t *testing.T) {
		recent := now.Add(-30 * time.Second)
		run := TaskRun{Status: StatusStarted, StartedAt: &recent}
		assert.False(t, ReporterStale(run, nil, now, threshold))
	})

	t.Run("terminal runs are never stale", func(t *testing.T) {
		run := TaskRun{Status: StatusCompleted, StartedAt: &started}
		assert.False(t, ReporterStale(run, nil, now, threshold))
	})

	t.Run("zero threshold disables the check", func(t *testing.T) {
		run := TaskRun{Status: StatusRunning, StartedAt: &started}
		assert.False(t, ReporterStale(run, nil, now, 0))
	})
}
