package models

import "time"

// ProcessMetrics is one snapshot recorded by the external process reporter
// for a running task. The newest row per run doubles as the heartbeat.
type ProcessMetrics struct {
	RunID      int64     `json:"run_id"`
	RecordedAt time.Time `json:"recorded_at"`
	CPUPercent float64   `json:"cpu_percent"`
	RSSBytes   int64     `json:"rss_bytes"`
	ChildCount int       `json:"child_count"`
}

// ReporterStale reports whether the process reporter for a run should be
// considered dead. Only active runs can be stale. When no metrics row exists
// yet, the run's start time is the reference point, so a freshly started run
// gets a grace period of the same length.
func ReporterStale(run TaskRun, m *ProcessMetrics, now time.Time, after time.Duration) bool {
	if !run.Status.IsActive() || after <= 0 {
		return false
	}
	ref := run.StartedAt
	if m != nil {
		ref = &m.RecordedAt
	}
	if ref == nil {
		return false
	}
	return now.Sub(*ref) > after
}

// ActiveQuery is one in-flight statement observed on the tasker database.
type ActiveQuery struct {
	PID       int           `json:"pid"`
	State     string        `json:"state"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"-"`
	Seconds   float64       `json:"duration_seconds"`
	Query     string        `json:"query"`
}
