package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind says what happened to the entity.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// Entity names carried by ledger events.
const (
	EntityExpense  = "expense"
	EntityCategory = "category"
	EntitySettings = "settings"
)

// LedgerEvent is a lightweight notification that the ledger changed.
// Consumers fetch current state from the store; the event carries no payload.
type LedgerEvent struct {
	Kind      EventKind `json:"kind"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entity_id"`
	Version   uint64    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEvent stamps an event with the current time.
func NewLedgerEvent(kind EventKind, entity, id string, version uint64) *LedgerEvent {
	return &LedgerEvent{
		Kind:      kind,
		Entity:    entity,
		EntityID:  id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and validates a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case EventCreated, EventUpdated, EventDeleted:
	default:
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
	if msg.Entity == "" {
		return nil, fmt.Errorf("event without entity")
	}
	return &msg, nil
}
