package rest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tellofleet/sim/internal/model"
)

type call struct {
	method string
	path   string
}

func newTestServer(t *testing.T) (*httptest.Server, *[]call) {
	t.Helper()
	var mu sync.Mutex
	calls := &[]call{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		*calls = append(*calls, call{method: r.Method, path: r.URL.Path})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, calls
}

func TestBackendRoutes(t *testing.T) {
	server, calls := newTestServer(t)
	b := New(Config{ServerURL: server.URL})
	require.NoError(t, b.Init())

	s := model.Snapshot{Identity: model.Identity{ID: "drone_1", Port: 8889}}
	require.NoError(t, b.AddDevice(s))
	require.NoError(t, b.PushState(s))
	require.NoError(t, b.RemoveDevice("drone_1"))
	require.NoError(t, b.Healthcheck())
	require.NoError(t, b.Close())

	assert.Equal(t, []call{
		{"POST", "/api/drones/drone_1/state"},
		{"POST", "/api/drones/drone_1/state"},
		{"DELETE", "/api/drones/drone_1"},
		{"GET", "/api/health"},
	}, *calls)
}

func TestPushStateSurfacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	b := New(Config{ServerURL: server.URL})
	err := b.PushState(model.Snapshot{Identity: model.Identity{ID: "drone_1"}})
	assert.Error(t, err)
}
