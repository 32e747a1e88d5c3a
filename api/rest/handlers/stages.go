package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Broadband-Catalysts/tasker-sub001/core/monitoring"
)

// StageHandler serves pipeline stage state from the latest snapshot.
type StageHandler struct {
	poller *monitoring.Poller
}

// NewStageHandler creates a new stage handler
func NewStageHandler(poller *monitoring.Poller) *StageHandler {
	return &StageHandler{poller: poller}
}

// ListStages handles GET /v1/stages
func (h *StageHandler) ListStages(w http.ResponseWriter, r *http.Request) {
	snap := h.poller.Latest()
	if snap == nil {
		writeErr(w, http.StatusServiceUnavailable, "No snapshot available yet")
		return
	}

	items := make([]*monitoring.StageSummary, 0, len(snap.Stages))
	for i := range snap.Stages {
		items = append(items, snap.Stages[i].Summary())
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"revision": snap.Revision,
		"taken_at": snap.TakenAt,
		"items":    items,
	})
}

// GetStageTasks handles GET /v1/stages/{id}/tasks
func (h *StageHandler) GetStageTasks(w http.ResponseWriter, r *http.Request) {
	stageID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid stage id")
		return
	}

	snap := h.poller.Latest()
	if snap == nil {
		writeErr(w, http.StatusServiceUnavailable, "No snapshot available yet")
		return
	}

	sv := snap.StageByID(stageID)
	if sv == nil {
		writeErr(w, http.StatusNotFound, "Stage not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"revision": snap.Revision,
		"stage":    sv.Summary(),
		"items":    sv.Tasks,
	})
}
