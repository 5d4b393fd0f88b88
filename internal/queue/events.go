package queue

import (
	"sync"
)

// eventBuffer is the per-subscriber channel depth. A slow SSE or websocket
// consumer drops events instead of stalling the capture worker.
const eventBuffer = 10

// Event is one progress update for a capture job.
type Event struct {
	JobID    string    `json:"job_id"`
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress,omitempty"`
	Message  string    `json:"message,omitempty"`
}

// EventHub fans job events out to per-job subscriber channels.
type EventHub struct {
	mu   sync.RWMutex
	subs map[string][]chan Event
}

// NewEventHub creates an empty event hub.
func NewEventHub() *EventHub {
	return &EventHub{
		subs: make(map[string][]chan Event),
	}
}

// Subscribe returns a channel that receives events for jobID until
// Unsubscribe or Close.
func (h *EventHub) Subscribe(jobID string) <-chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, eventBuffer)
	h.subs[jobID] = append(h.subs[jobID], ch)
	return ch
}

// Unsubscribe removes and closes one subscription.
func (h *EventHub) Unsubscribe(jobID string, ch <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subs[jobID]
	for i, sub := range subs {
		if sub != ch {
			continue
		}
		h.subs[jobID] = append(subs[:i], subs[i+1:]...)
		close(sub)
		break
	}

	if len(h.subs[jobID]) == 0 {
		delete(h.subs, jobID)
	}
}

// Emit delivers an event to every subscriber of jobID. Full channels are
// skipped.
func (h *EventHub) Emit(jobID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs[jobID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Close closes every subscription.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for jobID, subs := range h.subs {
		for _, ch := range subs {
			close(ch)
		}
		delete(h.subs, jobID)
	}
}
