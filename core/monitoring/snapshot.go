package monitoring

import (
	"fmt"
	"sort"
	"time"

	"github.com/Broadband-Catalysts/tasker-sub001/core/models"
)

// StatusCounts breaks a stage's tasks down by current status.
type StatusCounts struct {
	NotStarted int `json:"not_started"`
	Started    int `json:"started"`
	Running    int `json:"running"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

func (c *StatusCounts) add(s models.RunStatus) {
	switch s {
	case models.StatusStarted:
		c.Started++
	case models.StatusRunning:
		c.Running++
	case models.StatusCompleted:
		c.Completed++
	case models.StatusFailed:
		c.Failed++
	default:
		c.NotStarted++
	}
}

// TaskView is a task as the dashboard renders it: the registered task, its
// current run if any, subtask progress and the latest process reporter row.
type TaskView struct {
	Task     models.Task            `json:"task"`
	Status   models.RunStatus       `json:"status"`
	Run      *models.TaskRun        `json:"run,omitempty"`
	Subtasks []models.SubtaskRun    `json:"subtasks,omitempty"`
	Metrics  *models.ProcessMetrics `json:"metrics,omitempty"`

	// SubtasksDone counts completed subtasks of the current run.
	SubtasksDone  int `json:"subtasks_done"`
	SubtasksTotal int `json:"subtasks_total"`

	HeartbeatAge        time.Duration `json:"-"`
	HeartbeatAgeSeconds float64       `json:"heartbeat_age_seconds,omitempty"`
	ReporterStale       bool          `json:"reporter_stale,omitempty"`
}

// StageView is a stage with its tasks and the status derived from them.
type StageView struct {
	Stage  models.Stage       `json:"stage"`
	Status models.StageStatus `json:"status"`
	Counts StatusCounts       `json:"counts"`
	Tasks  []*TaskView        `json:"tasks"`
}

// Snapshot is one complete, immutable picture of the pipeline. Handlers
// and the diff only ever read it.
type Snapshot struct {
	Revision     uint64      `json:"revision"`
	TakenAt      time.Time   `json:"taken_at"`
	LegacySchema bool        `json:"legacy_schema,omitempty"`
	Stages       []StageView `json:"stages"`

	byTask  map[int64]*TaskView
	byStage map[int64]*StageView
}

// TaskByID returns the view of one task, or nil when it is not in the
// snapshot.
func (s *Snapshot) TaskByID(id int64) *TaskView {
	if s == nil {
		return nil
	}
	return s.byTask[id]
}

// StageByID returns the view of one stage, or nil when it is not in the
// snapshot.
func (s *Snapshot) StageByID(id int64) *StageView {
	if s == nil {
		return nil
	}
	return s.byStage[id]
}

// Tasks returns every task view in stage order.
func (s *Snapshot) Tasks() []*TaskView {
	if s == nil {
		return nil
	}
	var tasks []*TaskView
	for i := range s.Stages {
		tasks = append(tasks, s.Stages[i].Tasks...)
	}
	return tasks
}

// TaskCount returns the number of tasks in the snapshot.
func (s *Snapshot) TaskCount() int {
	if s == nil {
		return 0
	}
	return len(s.byTask)
}

// Summary returns the light representation of a stage view used in change
// payloads.
func (v *StageView) Summary() *StageSummary {
	return &StageSummary{
		ID:       v.Stage.ID,
		Name:     v.Stage.Name,
		Position: v.Stage.Position,
		Status:   v.Status,
		Counts:   v.Counts,
	}
}

// BuildSnapshot assembles the raw rows of one poll into a snapshot. Tasks
// that have never run get a synthetic NOT_STARTED status; tasks pointing at
// an unknown stage are kept under a placeholder stage rather than dropped.
// The caller assigns the revision.
func BuildSnapshot(
	now time.Time,
	staleAfter time.Duration,
	stages []models.Stage,
	tasks []models.Task,
	runs map[int64]models.TaskRun,
	subtasks map[int64][]models.SubtaskRun,
	metrics map[int64]models.ProcessMetrics,
	legacy bool,
) *Snapshot {
	snap := &Snapshot{
		TakenAt:      now,
		LegacySchema: legacy,
		byTask:       make(map[int64]*TaskView, len(tasks)),
		byStage:      make(map[int64]*StageView, len(stages)),
	}

	stageList := make([]models.Stage, len(stages))
	copy(stageList, stages)

	known := make(map[int64]bool, len(stages))
	maxPosition := 0
	for _, stage := range stages {
		known[stage.ID] = true
		if stage.Position > maxPosition {
			maxPosition = stage.Position
		}
	}
	// Placeholder stages for tasks whose stage row is missing.
	for _, task := range tasks {
		if known[task.StageID] {
			continue
		}
		known[task.StageID] = true
		maxPosition++
		stageList = append(stageList, models.Stage{
			ID:       task.StageID,
			Name:     fmt.Sprintf("stage %d", task.StageID),
			Position: maxPosition,
		})
	}

	sort.Slice(stageList, func(a, b int) bool {
		if stageList[a].Position != stageList[b].Position {
			return stageList[a].Position < stageList[b].Position
		}
		return stageList[a].ID < stageList[b].ID
	})

	snap.Stages = make([]StageView, len(stageList))
	for i, stage := range stageList {
		snap.Stages[i] = StageView{Stage: stage, Tasks: []*TaskView{}}
		snap.byStage[stage.ID] = &snap.Stages[i]
	}

	for _, task := range tasks {
		view := &TaskView{Task: task, Status: models.StatusNotStarted}

		if run, ok := runs[task.ID]; ok {
			run := run
			view.Run = &run
			view.Status = run.Status
			view.Subtasks = subtasks[run.RunID]
			for _, st := range view.Subtasks {
				view.SubtasksTotal++
				if st.Status == models.StatusCompleted {
					view.SubtasksDone++
				}
			}

			if m, ok := metrics[run.RunID]; ok {
				m := m
				view.Metrics = &m
				view.HeartbeatAge = now.Sub(m.RecordedAt)
				view.HeartbeatAgeSeconds = view.HeartbeatAge.Seconds()
			}
			view.ReporterStale = models.ReporterStale(run, view.Metrics, now, staleAfter)
		}

		snap.byTask[task.ID] = view
		stageView := snap.byStage[task.StageID]
		stageView.Tasks = append(stageView.Tasks, view)
	}

	for i := range snap.Stages {
		sv := &snap.Stages[i]
		sort.Slice(sv.Tasks, func(a, b int) bool {
			return sv.Tasks[a].Task.Name < sv.Tasks[b].Task.Name
		})

		statuses := make([]models.RunStatus, 0, len(sv.Tasks))
		for _, tv := range sv.Tasks {
			statuses = append(statuses, tv.Status)
			sv.Counts.add(tv.Status)
		}
		sv.Status = models.DeriveStageStatus(statuses)
	}

	return snap
}
