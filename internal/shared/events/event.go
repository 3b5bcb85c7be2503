package events

import (
	"context"
	"time"

	"github.com/ebioscore/platform/internal/shared/types"
	"github.com/google/uuid"
)

// Event is a domain event published on the bus. Every state change to
// a master record, receipt or booking emits one; the audit module
// persists them.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`

	// Actor information
	ActorID   types.ID `json:"actor_id,omitempty"`
	ActorName string   `json:"actor_name,omitempty"`

	// Subject record
	Entity   string `json:"entity,omitempty"`
	EntityID string `json:"entity_id,omitempty"`

	// Event data
	Data any `json:"data,omitempty"`
}

// NewEvent creates a new event with auto-generated ID and timestamp
func NewEvent(eventType, source string, data any) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// WithActor sets the actor information on the event
func (e Event) WithActor(actorID types.ID, actorName string) Event {
	e.ActorID = actorID
	e.ActorName = actorName
	return e
}

// WithEntity sets the subject record of the event
func (e Event) WithEntity(entity, entityID string) Event {
	e.Entity = entity
	e.EntityID = entityID
	return e
}

// Handler is a function that handles an event
type Handler func(ctx context.Context, event Event) error
