package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sketchrun/sketchrun/internal/config"
	"github.com/sketchrun/sketchrun/internal/log"
)

func TestSetup_Disabled(t *testing.T) {
	t.Parallel()

	shutdown, err := Setup(context.Background(), config.TracingConfig{Enabled: false}, log.NewNop())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_Enabled_DefaultEndpoint(t *testing.T) {
	t.Parallel()

	// No collector is listening; the batch exporter buffers and the
	// provider still comes up.
	shutdown, err := Setup(context.Background(), config.TracingConfig{
		Enabled:     true,
		ServiceName: "sketchrun-test",
		Environment: "test",
	}, log.NewNop())
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Shutdown with a canceled context returns promptly; the error (if
	// any) is the context's, not a hang.
	_ = shutdown(ctx)
}
