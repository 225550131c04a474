package events

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"lemonbook/internal/models"
)

// Event types published inside one session.
const (
	BookingBooked = "booking.booked"
)

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	seq         atomic.Int64
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type and returns the first
// handler error. Every handler runs even if an earlier one fails.
func (b *EventBus) Publish(event Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.ID == 0 {
		event.ID = b.seq.Add(1)
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var first error
	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewBookingBooked wraps a confirmed booking as an event.
func NewBookingBooked(result *models.BookingResult) (Event, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: BookingBooked, Payload: payload}, nil
}

// BookingResult decodes the payload of a BookingBooked event.
func (e Event) BookingResult() (*models.BookingResult, error) {
	var res models.BookingResult
	if err := json.Unmarshal(e.Payload, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
