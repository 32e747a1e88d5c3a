package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Broadband-Catalysts/tasker-sub001/core/monitoring"
)

// SystemHandler serves health, refresh and metrics endpoints.
type SystemHandler struct {
	poller          *monitoring.Poller
	exporter        *monitoring.MetricsExporter
	minPollInterval time.Duration
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(poller *monitoring.Poller, exporter *monitoring.MetricsExporter, minPollInterval time.Duration) *SystemHandler {
	return &SystemHandler{
		poller:          poller,
		exporter:        exporter,
		minPollInterval: minPollInterval,
	}
}

// HealthCheck handles GET /healthz. It reports 503 until the first
// successful poll so load balancers hold traffic during startup.
func (h *SystemHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	stats := h.poller.Stats()
	snap := h.poller.Latest()

	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "starting",
			"ready":  false,
			"poller": stats,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"ready":         true,
		"degraded":      stats.LastError != "",
		"revision":      snap.Revision,
		"last_poll_at":  stats.LastPollAt,
		"legacy_schema": h.poller.LegacySchema(),
		"poller":        stats,
	})
}

// TriggerRefresh handles POST /v1/refresh. The poll itself is
// asynchronous; requests inside the cooldown window coalesce.
func (h *SystemHandler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	h.poller.Refresh("manual refresh")

	stats := h.poller.Stats()
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":            "refresh requested",
		"min_poll_interval": h.minPollInterval.String(),
		"last_poll_at":      stats.LastPollAt,
	})
}

// GetMetrics handles GET /metrics in Prometheus text exposition format.
func (h *SystemHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	fmt.Fprint(w, h.exporter.GetPrometheusMetrics())
}
