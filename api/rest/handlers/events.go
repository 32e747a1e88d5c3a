package handlers

import (
	"net/http"
	"time"

	"github.com/Broadband-Catalysts/tasker-sub001/core/monitoring"
)

// EventHandler streams snapshot changes to dashboard clients over SSE.
type EventHandler struct {
	poller    *monitoring.Poller
	hub       *monitoring.Hub
	keepalive time.Duration
}

// NewEventHandler creates a new event stream handler
func NewEventHandler(poller *monitoring.Poller, hub *monitoring.Hub, keepalive time.Duration) *EventHandler {
	return &EventHandler{
		poller:    poller,
		hub:       hub,
		keepalive: keepalive,
	}
}

// StreamEvents handles GET /v1/events. The client first receives a full
// `snapshot` event, then incremental `changes` events. A full snapshot is
// re-sent whenever the server broadcasts a reset. Change sets older than
// the bootstrap snapshot are dropped so clients never patch backwards.
func (h *EventHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	sse := newSSEWriter(w)
	if sse == nil {
		writeErr(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	// Subscribe before reading the latest snapshot so nothing published
	// between the two is missed.
	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub.ID)

	var lastRev uint64
	if snap := h.poller.Latest(); snap != nil {
		if err := sse.event("snapshot", snap); err != nil {
			return
		}
		lastRev = snap.Revision
	}

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case cs, open := <-sub.Changes():
			if !open {
				// Dropped for falling behind. The client reconnects and
				// bootstraps from a fresh snapshot.
				return
			}
			if cs.ToRevision <= lastRev {
				continue
			}
			lastRev = cs.ToRevision

			if cs.Reset {
				snap := h.poller.Latest()
				if snap == nil {
					continue
				}
				if snap.Revision > lastRev {
					lastRev = snap.Revision
				}
				if err := sse.event("snapshot", snap); err != nil {
					return
				}
				continue
			}

			if err := sse.event("changes", cs); err != nil {
				return
			}

		case <-keepalive.C:
			sse.comment("keepalive")
		}
	}
}
