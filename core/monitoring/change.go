package monitoring

import (
	"time"

	"github.com/Broadband-Catalysts/tasker-sub001/core/models"
)

// ChangeKind classifies what a single change entry describes.
type ChangeKind string

const (
	ChangeTaskUpdated        ChangeKind = "task_updated"
	ChangeTaskAdded          ChangeKind = "task_added"
	ChangeTaskRemoved        ChangeKind = "task_removed"
	ChangeStageStatusChanged ChangeKind = "stage_status_changed"
	ChangeSnapshotReset      ChangeKind = "snapshot_reset"
)

// StageSummary is the stage payload attached to stage changes. It carries
// no task list so change sets stay small.
type StageSummary struct {
	ID       int64              `json:"id"`
	Name     string             `json:"name"`
	Position int                `json:"position"`
	Status   models.StageStatus `json:"status"`
	Counts   StatusCounts       `json:"counts"`
}

// Change is one observed difference between two snapshots.
type Change struct {
	Kind    ChangeKind    `json:"kind"`
	TaskID  int64         `json:"task_id,omitempty"`
	StageID int64         `json:"stage_id,omitempty"`
	Task    *TaskView     `json:"task,omitempty"`
	Stage   *StageSummary `json:"stage,omitempty"`
	Reason  string        `json:"reason,omitempty"`
}

// ChangeSet is everything that changed between two consecutive snapshots.
// Reset means the receiver must replace its whole state instead of patching.
type ChangeSet struct {
	FromRevision uint64    `json:"from_revision,omitempty"`
	ToRevision   uint64    `json:"to_revision"`
	TakenAt      time.Time `json:"taken_at"`
	Reset        bool      `json:"reset,omitempty"`
	Changes      []Change  `json:"changes"`
}
