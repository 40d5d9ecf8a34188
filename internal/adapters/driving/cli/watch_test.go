package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/compliance-engine/internal/adapters/driving/tui"
	"github.com/custodia-labs/compliance-engine/internal/adapters/driving/tui/messages"
)

func TestWatchCmd_Flags(t *testing.T) {
	flag := watchCmd.Flags().Lookup("interval")

	require.NotNil(t, flag)
	assert.Equal(t, tui.DefaultPollInterval.String(), flag.DefValue)
}

func TestNewWatchApp(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.addSession(42)
	watchInterval = time.Second
	defer func() { watchInterval = tui.DefaultPollInterval }()

	watchCmd.SetContext(context.Background())

	app, err := newWatchApp(watchCmd, "42")

	require.NoError(t, err)
	assert.NotNil(t, app)
	assert.Equal(t, messages.ViewProgress, app.CurrentView())
}

func TestNewWatchApp_Errors(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := newWatchApp(watchCmd, "abc")
	assert.Contains(t, err.Error(), "invalid validation detail id")

	SetServices(nil)
	_, err = newWatchApp(watchCmd, "42")
	assert.Contains(t, err.Error(), "session service not configured")
}
