// Package gateway implements the Subscriber Gateway: a long-lived
// Server-Sent Events endpoint that streams Event Bus traffic for a
// single review to a browser client. It adapts the corpus's
// notification-hub register/unregister/broadcast pattern (see
// DESIGN.md) to text/event-stream framing instead of a websocket wire
// protocol.
package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/roasbeef/planreview/internal/engine"
	"github.com/roasbeef/planreview/internal/eventbus"
)

// heartbeatInterval matches spec §4.4's fixed 30-second cadence.
const heartbeatInterval = 30 * time.Second

// Handler serves the event stream for one review per request.
type Handler struct {
	eng *engine.Engine
}

// NewHandler builds a Gateway handler bound to eng.
func NewHandler(eng *engine.Engine) *Handler {
	return &Handler{eng: eng}
}

// ServeHTTP implements the GET /api/reviews/:id/events contract. id and
// projectPath are extracted by the caller's router and passed in as
// arguments; see handleEvents in internal/httpapi for how this Handler
// is mounted.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request, id, projectPath string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub, snapshot, err := h.eng.Subscribe(r.Context(), id, projectPath)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	defer sub.Unsubscribe()

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeFrame(w, eventbus.Connected{Review: snapshot}); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case evt, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := writeFrame(w, evt); err != nil {
				return
			}
			flusher.Flush()

		case <-heartbeat.C:
			if err := writeFrame(w, eventbus.Heartbeat{Timestamp: time.Now().UTC()}); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeFrame emits one SSE record: event: <type>\nid: <ms-timestamp>\n
// data: <json>\n\n, per spec §6's literal wire format.
func writeFrame(w http.ResponseWriter, evt eventbus.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	id := time.Now().UnixMilli()

	_, err = fmt.Fprintf(w, "event: %s\nid: %d\ndata: %s\n\n", evt.Type(), id, data)
	return err
}
