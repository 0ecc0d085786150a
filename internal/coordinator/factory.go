// internal/coordinator/factory.go
package coordinator

import (
	"fmt"

	"github.com/tellofleet/sim/internal/config"
	"github.com/tellofleet/sim/internal/coordinator/memory"
	"github.com/tellofleet/sim/internal/coordinator/rest"
	"github.com/tellofleet/sim/internal/coordinator/websocket"
)

// NewBackend creates a coordinator backend based on configuration.
func NewBackend(cfg config.CoordinatorConfig) (Backend, error) {
	switch cfg.Type {
	case "rest":
		return rest.New(rest.Config{ServerURL: cfg.ServerURL, APIKey: cfg.APIKey}), nil
	case "websocket":
		return websocket.New(websocket.Config{URL: cfg.WebsocketURL, Secret: cfg.WebsocketSecret}), nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown coordinator type: %s", cfg.Type)
	}
}
