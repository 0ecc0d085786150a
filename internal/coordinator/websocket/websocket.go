package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tellofleet/sim/internal/model"
	"github.com/tellofleet/sim/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams fleet state over WebSocket to the coordinator.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket coordinator backend.
func New(cfg Config) *Backend {
	return &Backend{
		conn: newConnection(slog.Default()),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// AddDevice announces a device and waits for the coordinator's ack. The
// message is cached so the roster can be replayed after a reconnect.
func (b *Backend) AddDevice(s model.Snapshot) error {
	data, err := marshalEnvelope(streaming.TypeDroneAdded, streaming.DroneAddedPayload{
		ID:    s.ID,
		Port:  s.Port,
		State: s,
	})
	if err != nil {
		return err
	}

	b.conn.cacheAdded(s.ID, data)
	return b.conn.sendAndWait(data, streaming.TypeDroneAdded, ackTimeout)
}

// RemoveDevice announces a device leaving and waits for the ack.
func (b *Backend) RemoveDevice(id string) error {
	data, err := marshalEnvelope(streaming.TypeDroneRemoved, streaming.DroneRemovedPayload{ID: id})
	if err != nil {
		return err
	}

	b.conn.uncacheAdded(id)
	return b.conn.sendAndWait(data, streaming.TypeDroneRemoved, ackTimeout)
}

// PushState streams one snapshot, fire-and-forget.
func (b *Backend) PushState(s model.Snapshot) error {
	data, err := marshalEnvelope(streaming.TypeDroneState, streaming.DroneStatePayload{
		ID:    s.ID,
		State: s,
	})
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}
