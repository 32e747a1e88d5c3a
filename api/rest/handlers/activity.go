package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Broadband-Catalysts/tasker-sub001/core/repository"
)

// ActivityHandler exposes the database's own view of currently running
// queries, which the dashboard shows next to long polls.
type ActivityHandler struct {
	activityRepo *repository.ActivityRepository
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activityRepo *repository.ActivityRepository) *ActivityHandler {
	return &ActivityHandler{activityRepo: activityRepo}
}

// GetActivity handles GET /v1/activity
func (h *ActivityHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		fmt.Sscanf(limitParam, "%d", &limit)
	}

	queries, err := h.activityRepo.ActiveQueries()
	if errors.Is(err, repository.ErrActivityUnsupported) {
		writeErr(w, http.StatusNotImplemented, "Active query listing requires PostgreSQL")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "Failed to list activity: "+err.Error())
		return
	}

	if limit > 0 && len(queries) > limit {
		queries = queries[:limit]
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(queries),
		"items": queries,
	})
}
