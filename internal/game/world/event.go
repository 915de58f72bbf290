package world

import (
	"time"

	"github.com/google/uuid"
)

// EventType names the handling path for a scheduled world event.
type EventType string

const (
	// EventSpawn spawns one monster from payload keys "template", "zone",
	// "x", "y".
	EventSpawn EventType = "spawn"
	// EventScript runs a named spawn script from payload keys "script" and
	// "zone".
	EventScript EventType = "script"
	// EventAnnouncement logs a broadcast message from payload key "message".
	EventAnnouncement EventType = "announcement"
)

// Event is a scheduled one-shot world mutation. Events fire during the first
// tick whose time is at or past TriggerTime, then linger briefly for audit
// before eviction.
type Event struct {
	ID          string
	Type        EventType
	ZoneID      string
	Payload     map[string]any
	TriggerTime time.Time
	Processed   bool
	ProcessedAt time.Time
}

// newEvent creates an unprocessed event with a fresh id.
func newEvent(eventType EventType, zoneID string, payload map[string]any, triggerTime time.Time) *Event {
	return &Event{
		ID:          uuid.New().String(),
		Type:        eventType,
		ZoneID:      zoneID,
		Payload:     payload,
		TriggerTime: triggerTime,
	}
}

// payloadString extracts a string payload field, or "".
func (e *Event) payloadString(key string) string {
	v, _ := e.Payload[key].(string)
	return v
}

// payloadFloat extracts a numeric payload field, accepting float64 or int.
func (e *Event) payloadFloat(key string) float64 {
	switch v := e.Payload[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}
