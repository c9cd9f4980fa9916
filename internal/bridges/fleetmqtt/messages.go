package fleetmqtt

import (
	"time"

	"github.com/nerrad567/minergate/internal/fleet"
)

// CommandMessage is a light command received on
// minergate/command/light/{host}.
type CommandMessage struct {
	// ID correlates the command with its state message and audit entry.
	// One is generated when empty.
	ID string `json:"id,omitempty"`

	// Mode is one of on, off, toggle, status.
	Mode string `json:"mode"`
}

// StateMessage reports a light command outcome on
// minergate/light/{host}/state.
type StateMessage struct {
	ID          string    `json:"id"`
	Host        string    `json:"host"`
	Mode        string    `json:"mode"`
	LightStatus bool      `json:"light_status"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// EventMessage wraps a gateway event published on minergate/event/{type}.
type EventMessage struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

func lightEventMessage(e fleet.LightEvent) EventMessage {
	return EventMessage{Type: "light.changed", Timestamp: e.At, Payload: e}
}

func scanEventMessage(s fleet.Summary) EventMessage {
	return EventMessage{Type: "fleet.scanned", Timestamp: s.StartedAt.Add(s.Duration), Payload: s}
}
