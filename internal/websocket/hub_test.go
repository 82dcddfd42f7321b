package websocket

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub(HubConfig{MaxPerUser: 2})

	s1, err := hub.Register("u1", "t1", nil, nil)
	require.NoError(t, err)
	s2, err := hub.Register("u1", "t2", nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, s1.ID, s2.ID)
	assert.Equal(t, 2, hub.GetConnectionCount())

	_, err = hub.Register("u1", "t3", nil, nil)
	assert.ErrorIs(t, err, ErrTooManyStreams)

	_, err = hub.Register("u2", "t1", nil, nil)
	require.NoError(t, err)

	hub.Unregister(s1.ID)
	hub.Unregister(s1.ID)
	assert.Equal(t, 2, hub.GetConnectionCount())

	_, err = hub.Register("u1", "t3", nil, nil)
	assert.NoError(t, err)
}

func TestHub_Shutdown(t *testing.T) {
	hub := NewHub(DefaultHubConfig())

	cancelled := false
	_, err := hub.Register("u1", "t1", nil, func() { cancelled = true })
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.True(t, cancelled)
	assert.Equal(t, 0, hub.GetConnectionCount())

	_, err = hub.Register("u1", "t1", nil, nil)
	assert.ErrorIs(t, err, ErrHubClosed)
}
