// Package streaming defines the message vocabulary spoken to a fleet
// coordinator over WebSocket.
package streaming

import (
	"encoding/json"

	"github.com/tellofleet/sim/internal/model"
)

// Message type constants matching the coordinator protocol.
const (
	TypeDroneAdded   = "drone_added"
	TypeDroneState   = "drone_state_update"
	TypeDroneRemoved = "drone_removed"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the coordinator's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// DroneAddedPayload announces a device joining the fleet.
type DroneAddedPayload struct {
	ID    string         `json:"id"`
	Port  int            `json:"udp_port"`
	State model.Snapshot `json:"state"`
}

// DroneStatePayload carries one state snapshot.
type DroneStatePayload struct {
	ID    string         `json:"id"`
	State model.Snapshot `json:"state"`
}

// DroneRemovedPayload announces a device leaving the fleet.
type DroneRemovedPayload struct {
	ID string `json:"id"`
}
