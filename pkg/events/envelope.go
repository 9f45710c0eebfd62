package events

import (
	"encoding/json"
	"time"
)

// Event is anything published on the in-process or NATS bus.
type Event interface {
	// EventType is the routing code, e.g. "STRATEGY_PERSISTED".
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

// Envelope is the concrete event and also its JSON wire form on both buses.
type Envelope struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e Envelope) EventType() string { return e.Type }

func (e Envelope) Payload() map[string]interface{} { return e.Data }

func (e Envelope) Timestamp() time.Time { return e.OccurredAt }

// Owner is the user the event belongs to, or "" when absent.
func (e Envelope) Owner() string {
	owner, _ := e.Data["owner"].(string)
	return owner
}

// Str reads a string field of the payload.
func (e Envelope) Str(key string) string {
	v, _ := e.Data[key].(string)
	return v
}

// Marshal encodes any Event in the wire form, timestamps in UTC.
func Marshal(event Event) ([]byte, error) {
	return json.Marshal(Envelope{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp().UTC(),
	})
}

func Unmarshal(data []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(data, &e)
	return e, err
}
