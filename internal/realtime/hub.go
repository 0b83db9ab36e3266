// Package realtime fans seat state changes out to the viewers of a show.
package realtime

import (
	"sync"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/metrics"
)

// EventSeatUpdate is the only event type pushed to viewers.
const EventSeatUpdate = "seat_update"

// Event is the payload written to every viewer of a show.
type Event struct {
	Type   string   `json:"type"`
	Seats  []string `json:"seats"`
	Status string   `json:"status"`
}

// SeatUpdate builds a seat_update event.
func SeatUpdate(seats []string, status string) Event {
	cp := make([]string, len(seats))
	copy(cp, seats)
	return Event{Type: EventSeatUpdate, Seats: cp, Status: status}
}

// Subscriber is one viewer of one show. C is closed when the hub drops
// the viewer, either on Unsubscribe, on overflow or on Close.
type Subscriber struct {
	C      <-chan Event
	ch     chan Event
	showID string
}

// ShowID returns the show the subscriber watches.
func (s *Subscriber) ShowID() string { return s.showID }

// Hub is the process-local registry of viewers keyed by show id.
type Hub struct {
	mu     sync.RWMutex
	shows  map[string]map[*Subscriber]struct{}
	buffer int
	log    *zap.Logger
	closed bool
}

// NewHub returns an empty hub. buffer is the per-viewer queue length;
// a viewer that falls that far behind is disconnected.
func NewHub(buffer int, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		shows:  make(map[string]map[*Subscriber]struct{}),
		buffer: buffer,
		log:    logger.OrNop(log).Named("hub"),
	}
}

// Subscribe registers a viewer for showID. After Close it returns a
// subscriber whose channel is already closed.
func (h *Hub) Subscribe(showID string) *Subscriber {
	ch := make(chan Event, h.buffer)
	sub := &Subscriber{C: ch, ch: ch, showID: showID}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	set, ok := h.shows[showID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.shows[showID] = set
	}
	set[sub] = struct{}{}
	metrics.ViewerJoined()
	return sub
}

// Unsubscribe removes a viewer. Removing one that is already gone is a no-op.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	h.remove(sub)
	h.mu.Unlock()
}

// remove must be called with mu held.
func (h *Hub) remove(sub *Subscriber) bool {
	set, ok := h.shows[sub.showID]
	if !ok {
		return false
	}
	if _, ok := set[sub]; !ok {
		return false
	}
	delete(set, sub)
	close(sub.ch)
	metrics.ViewerLeft()
	if len(set) == 0 {
		delete(h.shows, sub.showID)
	}
	return true
}

// Publish delivers ev to every current viewer of showID without blocking.
// A viewer whose buffer is full is treated as a failed transport: it is
// logged, counted and evicted. Publish never fails.
func (h *Hub) Publish(showID string, ev Event) {
	var lagging []*Subscriber
	delivered := 0

	h.mu.RLock()
	for sub := range h.shows[showID] {
		select {
		case sub.ch <- ev:
			delivered++
		default:
			lagging = append(lagging, sub)
		}
	}
	h.mu.RUnlock()

	metrics.Delivered(delivered)
	if len(lagging) == 0 {
		return
	}

	h.mu.Lock()
	evicted := 0
	for _, sub := range lagging {
		if h.remove(sub) {
			evicted++
		}
	}
	h.mu.Unlock()

	metrics.Dropped(evicted)
	h.log.Warn("dropped lagging viewers",
		zap.String("show_id", showID),
		zap.Int("dropped", evicted),
		zap.Int("delivered", delivered),
	)
}

// Viewers returns the number of viewers currently watching showID.
func (h *Hub) Viewers(showID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.shows[showID])
}

// Close disconnects every viewer. Subsequent Subscribe calls get a closed
// channel and Publish becomes a no-op.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, set := range h.shows {
		for sub := range set {
			close(sub.ch)
			metrics.ViewerLeft()
		}
	}
	h.shows = make(map[string]map[*Subscriber]struct{})
}
