package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil session service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingSessionService)
	})

	t.Run("nil ports returns error", func(t *testing.T) {
		_, err := NewServer(nil)
		assert.ErrorIs(t, err, ErrMissingSessionService)
	})

	t.Run("sessions only creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{Sessions: &mockSessionQuery{}})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	assert.ErrorIs(t, (&Ports{Orchestrator: &mockOrchestrator{}}).Validate(), ErrMissingSessionService)
	assert.NoError(t, (&Ports{Sessions: &mockSessionQuery{}}).Validate())
	assert.NoError(t, (&Ports{
		Orchestrator: &mockOrchestrator{},
		Sessions:     &mockSessionQuery{},
		Requirements: &mockRequirementQuery{},
	}).Validate())
}

func TestInstructions_NameTools(t *testing.T) {
	for _, tool := range []string{"validate_session", "session_status", "list_results", "list_requirements"} {
		assert.Contains(t, Instructions, tool)
	}
}

func TestServer_Tools(t *testing.T) {
	server, err := NewServer(&Ports{Sessions: &mockSessionQuery{}})
	require.NoError(t, err)
	assert.Equal(t, []string{"validate_session", "session_status", "list_results"}, server.Tools())

	server, err = NewServer(&Ports{Sessions: &mockSessionQuery{}, Requirements: &mockRequirementQuery{}})
	require.NoError(t, err)
	assert.Contains(t, server.Tools(), "list_requirements")
}

func TestServer_Handler(t *testing.T) {
	server, err := NewServer(&Ports{Sessions: &mockSessionQuery{}})
	require.NoError(t, err)

	// A GET without a session is rejected rather than served.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	assert.GreaterOrEqual(t, w.Code, 400)
}

func TestServer_RunHTTP_StopsOnCancel(t *testing.T) {
	server, err := NewServer(&Ports{Sessions: &mockSessionQuery{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.RunHTTP(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("RunHTTP did not return after cancel")
	}
}
