// internal/coordinator/rest/rest.go
package rest

import (
	"github.com/tellofleet/sim/internal/api"
	"github.com/tellofleet/sim/internal/model"
)

// Config holds REST backend configuration.
type Config struct {
	ServerURL string
	APIKey    string
}

// Backend pushes fleet state to the coordinator's REST ingestion API.
// The API creates devices on first state post, so AddDevice and PushState
// share one call.
type Backend struct {
	client *api.Client
}

// New creates a new REST coordinator backend.
func New(cfg Config) *Backend {
	return &Backend{client: api.New(cfg.ServerURL, cfg.APIKey)}
}

// Init is a no-op; the first state post establishes the device.
// Reachability is probed separately through Healthcheck.
func (b *Backend) Init() error {
	return nil
}

// Close is a no-op.
func (b *Backend) Close() error {
	return nil
}

// AddDevice posts the initial snapshot, creating the device record.
func (b *Backend) AddDevice(s model.Snapshot) error {
	return b.client.PostState(s.ID, s)
}

// RemoveDevice deletes the device record.
func (b *Backend) RemoveDevice(id string) error {
	return b.client.DeleteDevice(id)
}

// PushState uploads one snapshot.
func (b *Backend) PushState(s model.Snapshot) error {
	return b.client.PostState(s.ID, s)
}

// Healthcheck probes the coordinator's health endpoint.
func (b *Backend) Healthcheck() error {
	return b.client.Healthcheck()
}
