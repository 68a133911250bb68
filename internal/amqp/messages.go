package amqp

import (
	"encoding/json"
	"time"
)

// ChangeMessage describes one mutation of the portfolio: a project, task
// or override was created, updated or deleted. Consumers fetch current
// state themselves; the message only identifies what moved.
type ChangeMessage struct {
	Entity    string    `json:"entity"` // "project", "task" or "override"
	Action    string    `json:"action"` // "created", "updated" or "deleted"
	Name      string    `json:"name"`
	ID        int64     `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(entity, action, name string, id int64) *ChangeMessage {
	return &ChangeMessage{
		Entity:    entity,
		Action:    action,
		Name:      name,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON creates a message from JSON bytes.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
