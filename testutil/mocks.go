package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockClashServer is a test server that mocks Clash Royale API responses,
// keyed by escaped request path (tags stay percent-encoded, e.g.
// "/players/%23C890U22V/battlelog").
type MockClashServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockClashServer creates a new mock API server.
func NewMockClashServer(t *testing.T) *MockClashServer {
	t.Helper()
	m := &MockClashServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := m.Handlers[r.URL.EscapedPath()]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"reason":"notFound"}`))
	}))
	t.Cleanup(m.Close)
	return m
}

// MockJSON registers a handler that serves the given value as JSON.
func (m *MockClashServer) MockJSON(path string, v any) {
	m.Handlers[path] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
}

// MockStatus registers a handler that replies with a bare status code.
func (m *MockClashServer) MockStatus(path string, status int) {
	m.Handlers[path] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}
}
