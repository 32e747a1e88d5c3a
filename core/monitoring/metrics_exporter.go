package monitoring

import (
	"fmt"
	"strings"
)

// MetricsExporter renders the monitor's state in Prometheus exposition
// format so the pipeline can be graphed next to the rest of the fleet.
type MetricsExporter struct {
	poller *Poller
	hub    *Hub
}

// NewMetricsExporter creates a new metrics exporter.
func NewMetricsExporter(poller *Poller, hub *Hub) *MetricsExporter {
	return &MetricsExporter{
		poller: poller,
		hub:    hub,
	}
}

// GetPrometheusMetrics returns metrics in Prometheus format.
func (me *MetricsExporter) GetPrometheusMetrics() string {
	stats := me.poller.Stats()
	snap := me.poller.Latest()

	var metrics string

	metrics += "# HELP tasker_polls_total Successful reconciliation polls\n"
	metrics += "# TYPE tasker_polls_total counter\n"
	metrics += fmt.Sprintf("tasker_polls_total %d\n", stats.Polls)

	metrics += "# HELP tasker_poll_failures_total Polls that failed and kept the previous snapshot\n"
	metrics += "# TYPE tasker_poll_failures_total counter\n"
	metrics += fmt.Sprintf("tasker_poll_failures_total %d\n", stats.Failures)

	metrics += "# HELP tasker_poll_duration_seconds Duration of the most recent poll\n"
	metrics += "# TYPE tasker_poll_duration_seconds gauge\n"
	metrics += fmt.Sprintf("tasker_poll_duration_seconds %.6f\n", stats.LastDurationMS/1000)

	var lastPoll int64
	if !stats.LastPollAt.IsZero() {
		lastPoll = stats.LastPollAt.Unix()
	}
	metrics += "# HELP tasker_last_poll_timestamp_seconds Unix time of the most recent poll attempt\n"
	metrics += "# TYPE tasker_last_poll_timestamp_seconds gauge\n"
	metrics += fmt.Sprintf("tasker_last_poll_timestamp_seconds %d\n", lastPoll)

	metrics += "# HELP tasker_event_subscribers Connected change stream subscribers\n"
	metrics += "# TYPE tasker_event_subscribers gauge\n"
	metrics += fmt.Sprintf("tasker_event_subscribers %d\n", me.hub.Len())

	legacy := 0
	if me.poller.LegacySchema() {
		legacy = 1
	}
	metrics += "# HELP tasker_legacy_schema Whether the older status view serves the polls\n"
	metrics += "# TYPE tasker_legacy_schema gauge\n"
	metrics += fmt.Sprintf("tasker_legacy_schema %d\n", legacy)

	if snap == nil {
		return metrics
	}

	metrics += "# HELP tasker_snapshot_revision Revision of the snapshot being served\n"
	metrics += "# TYPE tasker_snapshot_revision gauge\n"
	metrics += fmt.Sprintf("tasker_snapshot_revision %d\n", snap.Revision)

	totals := StatusCounts{}
	staleReporters := 0
	var itemsDone, itemsTotal int64
	for _, view := range snap.Tasks() {
		totals.add(view.Status)
		if view.ReporterStale {
			staleReporters++
		}
		for _, st := range view.Subtasks {
			itemsDone += st.ItemsDone
			itemsTotal += st.ItemsTotal
		}
	}

	metrics += "# HELP tasker_tasks Tasks by current status\n"
	metrics += "# TYPE tasker_tasks gauge\n"
	metrics += fmt.Sprintf("tasker_tasks{status=\"not_started\"} %d\n", totals.NotStarted)
	metrics += fmt.Sprintf("tasker_tasks{status=\"started\"} %d\n", totals.Started)
	metrics += fmt.Sprintf("tasker_tasks{status=\"running\"} %d\n", totals.Running)
	metrics += fmt.Sprintf("tasker_tasks{status=\"completed\"} %d\n", totals.Completed)
	metrics += fmt.Sprintf("tasker_tasks{status=\"failed\"} %d\n", totals.Failed)

	metrics += "# HELP tasker_stage_status Stage status as a one-hot gauge\n"
	metrics += "# TYPE tasker_stage_status gauge\n"
	for _, sv := range snap.Stages {
		metrics += fmt.Sprintf("tasker_stage_status{stage=\"%s\",status=\"%s\"} 1\n",
			sv.Stage.Name, strings.ToLower(string(sv.Status)))
	}

	metrics += "# HELP tasker_task_percent_complete Progress reported for active runs\n"
	metrics += "# TYPE tasker_task_percent_complete gauge\n"
	for _, view := range snap.Tasks() {
		if view.Run == nil || !view.Status.IsActive() {
			continue
		}
		metrics += fmt.Sprintf("tasker_task_percent_complete{task=\"%s\"} %.1f\n",
			view.Task.Name, view.Run.PercentComplete)
	}

	metrics += "# HELP tasker_subtask_items_done Work items finished across all current runs\n"
	metrics += "# TYPE tasker_subtask_items_done gauge\n"
	metrics += fmt.Sprintf("tasker_subtask_items_done %d\n", itemsDone)

	metrics += "# HELP tasker_subtask_items_total Work items expected across all current runs\n"
	metrics += "# TYPE tasker_subtask_items_total gauge\n"
	metrics += fmt.Sprintf("tasker_subtask_items_total %d\n", itemsTotal)

	metrics += "# HELP tasker_stale_reporters Active runs whose process reporter went quiet\n"
	metrics += "# TYPE tasker_stale_reporters gauge\n"
	metrics += fmt.Sprintf("tasker_stale_reporters %d\n", staleReporters)

	return metrics
}
