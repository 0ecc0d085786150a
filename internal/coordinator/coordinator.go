// internal/coordinator/coordinator.go
package coordinator

import "github.com/tellofleet/sim/internal/model"

// Backend is the interface all coordinator transports must satisfy.
// Implementations deliver fleet membership changes and state snapshots;
// they must tolerate coordinator outages without blocking the caller
// beyond their own timeouts.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Fleet membership
	AddDevice(s model.Snapshot) error
	RemoveDevice(id string) error

	// State publication
	PushState(s model.Snapshot) error
}

// HealthChecker is an optional interface for backends that can probe the
// coordinator's reachability.
type HealthChecker interface {
	Healthcheck() error
}
