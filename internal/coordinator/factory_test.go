package coordinator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tellofleet/sim/internal/config"
	"github.com/tellofleet/sim/internal/coordinator"
	"github.com/tellofleet/sim/internal/coordinator/memory"
	"github.com/tellofleet/sim/internal/coordinator/rest"
	"github.com/tellofleet/sim/internal/coordinator/websocket"
)

// Every backend satisfies the Backend contract.
var (
	_ coordinator.Backend = (*memory.Backend)(nil)
	_ coordinator.Backend = (*rest.Backend)(nil)
	_ coordinator.Backend = (*websocket.Backend)(nil)

	_ coordinator.HealthChecker = (*rest.Backend)(nil)
)

func TestNewBackend(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.CoordinatorConfig
		want    any
		wantErr bool
	}{
		{
			name: "memory",
			cfg:  config.CoordinatorConfig{Type: "memory"},
			want: &memory.Backend{},
		},
		{
			name: "rest",
			cfg:  config.CoordinatorConfig{Type: "rest", ServerURL: "http://localhost:8000"},
			want: &rest.Backend{},
		},
		{
			name: "websocket",
			cfg:  config.CoordinatorConfig{Type: "websocket", WebsocketURL: "ws://localhost:8000/ws"},
			want: &websocket.Backend{},
		},
		{
			name:    "unknown",
			cfg:     config.CoordinatorConfig{Type: "carrier-pigeon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := coordinator.NewBackend(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, b)
		})
	}
}
