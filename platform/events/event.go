// Package events is the in-process publish/subscribe layer used for
// operator notifications. It holds no business logic.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every published value.
type Event interface {
	// EventName is the subscription key.
	EventName() string
	OccurredAt() time.Time
}

// Identified is implemented by events that carry an id for log correlation.
type Identified interface {
	EventID() uuid.UUID
}

// BaseEvent is embedded by domain events.
type BaseEvent struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

func (e BaseEvent) EventID() uuid.UUID { return e.ID }

// NewBaseEvent stamps a fresh id and the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{ID: uuid.New(), Timestamp: time.Now().UTC()}
}

type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc lets a plain function subscribe.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus is what publishers depend on. Subscribe is keyed by EventName.
type Bus interface {
	// Publish returns immediately; handler errors are only logged.
	Publish(ctx context.Context, event Event)
	// PublishSync runs handlers in order and joins their errors.
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}

// logAttrs returns the name and, when present, the id of event.
func logAttrs(event Event) []any {
	attrs := []any{"event", event.EventName()}
	if id, ok := event.(Identified); ok && id.EventID() != uuid.Nil {
		attrs = append(attrs, "event_id", id.EventID().String())
	}
	return attrs
}
