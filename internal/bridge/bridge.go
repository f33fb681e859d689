// Package bridge implements the screenshot export protocol between the
// host and the isolated sub-contexts rendering artifacts.
//
// The embedded renderer cannot be introspected directly; the only way
// to rasterize it is to ask it. The bridge keeps a registry of pending
// exports keyed by artifact id, sends a take-screenshot request through
// a Frames port, and resolves exactly the pending entry whose id
// matches an incoming response. The timeout timer lives in the same
// scope as the registration, so cancellation always disposes both: no
// leaked entries, no double resolution, and a response that arrives
// after its window is dropped silently.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrTimeout means no matching response arrived within the export
	// window. The artifact's displayed state is unaffected.
	ErrTimeout = errors.New("screenshot export timed out")

	// ErrFrameNotFound means the target sub-context could not be
	// located (not yet mounted, or already removed). Fails immediately
	// without waiting for the window.
	ErrFrameNotFound = errors.New("frame not found")

	// ErrExportInFlight means an export for the same artifact id is
	// already pending. Same-id exports are serialized explicitly
	// rather than racing on the first matching response.
	ErrExportInFlight = errors.New("screenshot export already in flight")
)

// ActionTakeScreenshot is the request action understood by frames.
const ActionTakeScreenshot = "take-screenshot"

// Request asks the sub-context rendering the identified artifact to
// capture its surface.
type Request struct {
	Action string `json:"action"`
	ID     string `json:"id"`
}

// Response carries the captured raster back, tagged with the artifact
// id it belongs to.
type Response struct {
	Screenshot string `json:"screenshot"`
	ID         string `json:"id"`
}

// Frames delivers a request to the specific sub-context instance
// rendering the identified artifact. Send returns ErrFrameNotFound
// when no such sub-context is reachable.
type Frames interface {
	Send(ctx context.Context, id string, req Request) error
}

// Bridge correlates screenshot requests with their responses.
type Bridge struct {
	mu      sync.Mutex
	pending map[string]chan Response

	frames  Frames
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a bridge. timeout <= 0 falls back to 2s; logger may be nil.
func New(frames Frames, timeout time.Duration, logger *slog.Logger) *Bridge {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		pending: make(map[string]chan Response),
		frames:  frames,
		timeout: timeout,
		logger:  logger,
	}
}

// Capture rasterizes the artifact's rendered surface and returns the
// image as a data URL.
//
// The listener is registered before the request is sent, so a frame
// that answers instantly cannot slip past it. Whatever happens —
// resolution, timeout, cancellation, send failure — the deferred
// deregistration removes the entry, which is what makes a late
// response land in Dispatch's drop path instead of resolving anything.
func (b *Bridge) Capture(ctx context.Context, id string) (string, error) {
	ch, err := b.register(id)
	if err != nil {
		return "", err
	}
	defer b.deregister(id)

	if err := b.frames.Send(ctx, id, Request{Action: ActionTakeScreenshot, ID: id}); err != nil {
		return "", fmt.Errorf("requesting screenshot for %s: %w", id, err)
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		return resp.Screenshot, nil
	case <-timer.C:
		return "", fmt.Errorf("no response for %s within %s: %w", id, b.timeout, ErrTimeout)
	case <-ctx.Done():
		return "", fmt.Errorf("screenshot export for %s: %w", id, ctx.Err())
	}
}

// Dispatch routes an incoming response to the pending export with the
// exact same id. Returns false when nothing was waiting — a late
// response after timeout, a duplicate, or cross-talk from another
// artifact's frame — all of which are dropped silently.
func (b *Bridge) Dispatch(resp Response) bool {
	b.mu.Lock()
	ch, ok := b.pending[resp.ID]
	if ok {
		// Remove under the lock: the first matching response wins and
		// a duplicate cannot resolve twice.
		delete(b.pending, resp.ID)
	}
	b.mu.Unlock()

	if !ok {
		b.logger.Debug("dropping unmatched screenshot response", "artifact_id", resp.ID)
		return false
	}

	// Buffered channel: the receiver may already have given up, and
	// this send must not block the dispatcher.
	ch <- resp
	return true
}

func (b *Bridge) register(id string) (chan Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.pending[id]; exists {
		return nil, fmt.Errorf("artifact %s: %w", id, ErrExportInFlight)
	}
	ch := make(chan Response, 1)
	b.pending[id] = ch
	return ch, nil
}

func (b *Bridge) deregister(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}
