package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"scaletrack/models"
	"scaletrack/services/coordinator"
)

type eventService interface {
	RegisterObserver(o coordinator.Observer)
	RegisterNoticeSink(s coordinator.NoticeSink)
}

var _ eventService = (*coordinator.Coordinator)(nil)

// EventsHandler streams measurement-list updates and notices to UI clients
// over server-sent events. Each connection registers as an observer whose
// liveness is its request context; a closed connection is skipped by later
// broadcasts rather than torn out of the registry.
type EventsHandler struct {
	service eventService
}

// NewEventsHandler creates an events handler.
func NewEventsHandler(s eventService) *EventsHandler {
	return &EventsHandler{service: s}
}

// Register mounts the event stream route.
func (h *EventsHandler) Register(r *mux.Router) {
	r.HandleFunc("/events", h.Stream).Methods(http.MethodGet)
}

type sseEvent struct {
	id   string
	kind string
	data any
}

// sseClient buffers events for one connection. Deliveries never block the
// broadcaster: a client that cannot keep up loses intermediate snapshots and
// catches up with the next one.
type sseClient struct {
	ctx    context.Context
	events chan sseEvent
}

func (c *sseClient) Active() bool { return c.ctx.Err() == nil }

func (c *sseClient) OnMeasurementsChanged(list []models.Measurement) {
	c.push(sseEvent{id: uuid.NewString(), kind: "measurements", data: list})
}

func (c *sseClient) Notice(n models.Notice) {
	c.push(sseEvent{id: n.ID, kind: "notice", data: n})
}

func (c *sseClient) push(ev sseEvent) {
	select {
	case c.events <- ev:
	default:
	}
}

// Stream serves one SSE connection.
// GET /api/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := &sseClient{ctx: r.Context(), events: make(chan sseEvent, 16)}
	h.service.RegisterObserver(client)
	h.service.RegisterNoticeSink(client)

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-client.events:
			payload, err := json.Marshal(ev.data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ev.id, ev.kind, payload)
			flusher.Flush()
		}
	}
}
