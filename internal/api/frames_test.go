package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sketchrun/sketchrun/internal/bridge"
	"github.com/sketchrun/sketchrun/internal/log"
)

func TestFrameHub_SendWithoutFrame(t *testing.T) {
	t.Parallel()

	hub := NewFrameHub(log.NewNop())

	err := hub.Send(context.Background(), "artifact-1", bridge.Request{
		Action: bridge.ActionTakeScreenshot,
		ID:     "artifact-1",
	})
	require.ErrorIs(t, err, bridge.ErrFrameNotFound)
}

func TestFrameHub_SendDelivers(t *testing.T) {
	t.Parallel()

	hub := NewFrameHub(log.NewNop())
	ch := hub.attach("artifact-1")

	req := bridge.Request{Action: bridge.ActionTakeScreenshot, ID: "artifact-1"}
	require.NoError(t, hub.Send(context.Background(), "artifact-1", req))

	select {
	case got := <-ch:
		assert.Equal(t, req, got)
	default:
		t.Fatal("request was not queued")
	}
}

func TestFrameHub_FullQueueTreatedAsAbsent(t *testing.T) {
	t.Parallel()

	hub := NewFrameHub(log.NewNop())
	hub.attach("artifact-1")

	ctx := context.Background()
	req := bridge.Request{Action: bridge.ActionTakeScreenshot, ID: "artifact-1"}
	for range frameQueueSize {
		require.NoError(t, hub.Send(ctx, "artifact-1", req))
	}

	err := hub.Send(ctx, "artifact-1", req)
	require.ErrorIs(t, err, bridge.ErrFrameNotFound)
}

func TestFrameHub_AttachReplacesAndDetachIsScoped(t *testing.T) {
	t.Parallel()

	hub := NewFrameHub(log.NewNop())

	old := hub.attach("artifact-1")
	current := hub.attach("artifact-1")

	// The stale connection's detach must not evict the replacement.
	hub.detach("artifact-1", old)
	assert.True(t, hub.connected("artifact-1"))

	require.NoError(t, hub.Send(context.Background(), "artifact-1",
		bridge.Request{Action: bridge.ActionTakeScreenshot, ID: "artifact-1"}))
	select {
	case <-current:
	default:
		t.Fatal("request went to the stale channel")
	}

	hub.detach("artifact-1", current)
	assert.False(t, hub.connected("artifact-1"))
}
