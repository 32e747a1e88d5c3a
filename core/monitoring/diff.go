package monitoring

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Diff computes what changed between two consecutive snapshots. With no
// previous snapshot the result is a single snapshot_reset entry telling
// consumers to replace their state. Unchanged entities never appear in the
// result, so a quiet pipeline produces empty change sets.
func Diff(old, current *Snapshot) ChangeSet {
	cs := ChangeSet{
		ToRevision: current.Revision,
		TakenAt:    current.TakenAt,
	}

	if old == nil {
		cs.Reset = true
		cs.Changes = []Change{{Kind: ChangeSnapshotReset}}
		return cs
	}
	cs.FromRevision = old.Revision

	for _, id := range sortedTaskIDs(old) {
		if current.TaskByID(id) == nil {
			cs.Changes = append(cs.Changes, Change{
				Kind:    ChangeTaskRemoved,
				TaskID:  id,
				StageID: old.TaskByID(id).Task.StageID,
			})
		}
	}

	for _, id := range sortedTaskIDs(current) {
		view := current.TaskByID(id)
		prev := old.TaskByID(id)
		switch {
		case prev == nil:
			cs.Changes = append(cs.Changes, Change{
				Kind:    ChangeTaskAdded,
				TaskID:  id,
				StageID: view.Task.StageID,
				Task:    view,
			})
		case taskFingerprint(prev) != taskFingerprint(view):
			cs.Changes = append(cs.Changes, Change{
				Kind:    ChangeTaskUpdated,
				TaskID:  id,
				StageID: view.Task.StageID,
				Task:    view,
			})
		}
	}

	for i := range current.Stages {
		sv := &current.Stages[i]
		prev := old.StageByID(sv.Stage.ID)
		if prev != nil && stageFingerprint(prev) == stageFingerprint(sv) {
			continue
		}
		change := Change{
			Kind:    ChangeStageStatusChanged,
			StageID: sv.Stage.ID,
			Stage:   sv.Summary(),
		}
		if prev != nil && prev.Status != sv.Status {
			change.Reason = fmt.Sprintf("%s -> %s", prev.Status, sv.Status)
		}
		cs.Changes = append(cs.Changes, change)
	}

	return cs
}

func sortedTaskIDs(s *Snapshot) []int64 {
	ids := make([]int64, 0, len(s.byTask))
	for id := range s.byTask {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

// taskFingerprint condenses the rendered fields of a task view into a
// comparable string. Percent values are rounded to 0.1 so reporter jitter
// does not read as a change, and the heartbeat age is deliberately left
// out because it grows on every poll.
func taskFingerprint(v *TaskView) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s|%d|%s|%s|%t|%s",
		v.Task.Name, v.Task.StageID, v.Task.LogPath, v.Task.LogFilename, v.Task.Enabled, v.Status)

	if v.Run != nil {
		fmt.Fprintf(&b, "|run:%d|%s|%s|%s|%d|%.1f|%s",
			v.Run.RunID,
			timeFingerprint(v.Run.StartedAt),
			timeFingerprint(v.Run.EndedAt),
			v.Run.Host,
			v.Run.PID,
			v.Run.PercentComplete,
			v.Run.ErrorText)
	}

	for _, st := range v.Subtasks {
		fmt.Fprintf(&b, "|st:%s|%s|%d/%d", st.Name, st.Status, st.ItemsDone, st.ItemsTotal)
	}

	if v.Metrics != nil {
		fmt.Fprintf(&b, "|m:%d|%.1f|%d|%d",
			v.Metrics.RecordedAt.UnixNano(), v.Metrics.CPUPercent, v.Metrics.RSSBytes, v.Metrics.ChildCount)
	}

	fmt.Fprintf(&b, "|stale:%t", v.ReporterStale)
	return b.String()
}

func stageFingerprint(v *StageView) string {
	return fmt.Sprintf("%s|%s|%+v", v.Stage.Name, v.Status, v.Counts)
}

func timeFingerprint(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return fmt.Sprintf("%d", t.UnixNano())
}
