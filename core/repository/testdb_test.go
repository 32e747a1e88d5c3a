package repository

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// testSchema mirrors the tables the tasker engine maintains. The monitor
// only ever reads them.
const testSchema = `
CREATE TABLE stages (
    stage_id   INTEGER PRIMARY KEY,
    stage_name TEXT    NOT NULL,
    position   INTEGER NOT NULL
);

CREATE TABLE tasks (
    task_id       INTEGER PRIMARY KEY,
    task_name     TEXT    NOT NULL,
    stage_id      INTEGER NOT NULL,
    log_path      TEXT,
    log_filename  TEXT,
    enabled       BOOLEAN   NOT NULL DEFAULT 1,
    registered_at TIMESTAMP NOT NULL
);

CREATE TABLE task_runs (
    run_id           INTEGER PRIMARY KEY,
    task_id          INTEGER NOT NULL,
    status           TEXT    NOT NULL,
    started_at       TIMESTAMP,
    ended_at         TIMESTAMP,
    updated_at       TIMESTAMP NOT NULL,
    host             TEXT,
    pid              INTEGER,
    percent_complete REAL,
    error_text       TEXT
);

CREATE TABLE subtask_runs (
    subtask_run_id INTEGER PRIMARY KEY,
    run_id         INTEGER NOT NULL,
    subtask_name   TEXT    NOT NULL,
    status         TEXT    NOT NULL,
    items_done     INTEGER,
    items_total    INTEGER,
    updated_at     TIMESTAMP NOT NULL
);

CREATE TABLE process_metrics (
    metric_id   INTEGER PRIMARY KEY,
    run_id      INTEGER NOT NULL,
    recorded_at TIMESTAMP NOT NULL,
    cpu_percent REAL,
    rss_bytes   INTEGER,
    child_count INTEGER
);
`

const extViewSQL = `
CREATE VIEW v_task_status_ext AS
SELECT r.task_id, r.run_id, r.status, r.started_at, r.ended_at, r.updated_at,
       r.host, r.pid, r.percent_complete, r.error_text
FROM task_runs r
WHERE r.run_id = (
    SELECT MAX(r2.run_id) FROM task_runs r2 WHERE r2.task_id = r.task_id
);
`

const legacyViewSQL = `
CREATE VIEW v_task_status AS
SELECT r.task_id, r.run_id, r.status, r.started_at, r.ended_at, r.updated_at
FROM task_runs r
WHERE r.run_id = (
    SELECT MAX(r2.run_id) FROM task_runs r2 WHERE r2.task_id = r.task_id
);
`

var testDBSeq int64

// openTestDB opens a fresh in-memory tasker database with base tables plus
// the given views. Each call gets its own database.
func openTestDB(t *testing.T, views ...string) *DB {
	t.Helper()

	dsn := fmt.Sprintf("file:taskerrepo%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := NewDBWithDriver("sqlite", dsn)
	require.NoError(t, err, "open sqlite")
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err, "create schema")
	for _, view := range views {
		_, err = db.Exec(view)
		require.NoError(t, err, "create view")
	}
	return db
}

func seedStage(t *testing.T, db *DB, id int64, name string, position int) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO stages (stage_id, stage_name, position) VALUES ($1, $2, $3)`,
		id, name, position)
	require.NoError(t, err)
}

func seedTask(t *testing.T, db *DB, id, stageID int64, name, logPath, logFilename string) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO tasks (task_id, task_name, stage_id, log_path, log_filename, enabled, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, name, stageID, nullIfEmpty(logPath), nullIfEmpty(logFilename), true, time.Now().UTC())
	require.NoError(t, err)
}

func seedRun(t *testing.T, db *DB, runID, taskID int64, status string, startedAt, endedAt *time.Time, percent float64) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO task_runs (run_id, task_id, status, started_at, ended_at, updated_at, host, pid, percent_complete, error_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		runID, taskID, status, startedAt, endedAt, time.Now().UTC(), "worker-1", 4242, percent, nil)
	require.NoError(t, err)
}

func seedSubtask(t *testing.T, db *DB, id, runID int64, name, status string, done, total int64) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO subtask_runs (subtask_run_id, run_id, subtask_name, status, items_done, items_total, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, runID, name, status, done, total, time.Now().UTC())
	require.NoError(t, err)
}

func seedMetrics(t *testing.T, db *DB, metricID, runID int64, recordedAt time.Time, cpu float64, rss int64) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO process_metrics (metric_id, run_id, recorded_at, cpu_percent, rss_bytes, child_count)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		metricID, runID, recordedAt, cpu, rss, 1)
	require.NoError(t, err)
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func timePtr(t time.Time) *time.Time {
	return &t
}
