package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/sketchrun/sketchrun/internal/bridge"
)

// frameQueueSize bounds undelivered screenshot requests per frame. One
// slot would do for the one-shot protocol; a little headroom keeps a
// remounting frame from dropping the request racing its reconnect.
const frameQueueSize = 4

// FrameHub tracks which embedded renderers are currently connected and
// delivers screenshot requests to them. It is the bridge's Frames port:
// Send fails with bridge.ErrFrameNotFound when the artifact's frame
// holds no event stream right now.
type FrameHub struct {
	mu     sync.Mutex
	frames map[string]chan bridge.Request
	logger *slog.Logger
}

// NewFrameHub creates an empty hub. logger may be nil.
func NewFrameHub(logger *slog.Logger) *FrameHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &FrameHub{
		frames: make(map[string]chan bridge.Request),
		logger: logger,
	}
}

// Send queues a request for the frame rendering the identified
// artifact. Never blocks: a full queue means the frame stopped
// reading, which is treated the same as an absent frame.
func (h *FrameHub) Send(_ context.Context, id string, req bridge.Request) error {
	h.mu.Lock()
	ch, ok := h.frames[id]
	h.mu.Unlock()

	if !ok {
		return fmt.Errorf("no frame connected for artifact %s: %w", id, bridge.ErrFrameNotFound)
	}

	select {
	case ch <- req:
		return nil
	default:
		return fmt.Errorf("frame for artifact %s is not reading: %w", id, bridge.ErrFrameNotFound)
	}
}

// attach registers a frame's request queue, replacing any previous
// connection for the same artifact (a remounted iframe reconnects
// before the old stream times out).
func (h *FrameHub) attach(id string) chan bridge.Request {
	ch := make(chan bridge.Request, frameQueueSize)
	h.mu.Lock()
	h.frames[id] = ch
	h.mu.Unlock()
	return ch
}

// detach removes the frame's queue, unless a newer connection already
// replaced it.
func (h *FrameHub) detach(id string, ch chan bridge.Request) {
	h.mu.Lock()
	if current, ok := h.frames[id]; ok && current == ch {
		delete(h.frames, id)
	}
	h.mu.Unlock()
}

// connected reports whether a frame currently holds a stream for the id.
func (h *FrameHub) connected(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.frames[id]
	return ok
}

// framesHandler serves the two frame-facing endpoints.
type framesHandler struct {
	hub    *FrameHub
	bridge *bridge.Bridge
	logger *slog.Logger
}

// events streams screenshot requests to the connected frame as SSE.
// The connection is held open until the frame disconnects or the
// server shuts down.
func (f *framesHandler) events(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing_id", "artifact id is required", f.logger)
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", err.Error(), f.logger)
		return
	}

	ch := f.hub.attach(id)
	defer f.hub.detach(id, ch)

	f.logger.Debug("frame connected", "artifact_id", id)

	// Tell the frame it is registered before any request can race it.
	if err := sse.writeEvent("connected", map[string]string{"id": id}); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			f.logger.Debug("frame disconnected", "artifact_id", id)
			return
		case req := <-ch:
			if err := sse.writeEvent("screenshot-request", req); err != nil {
				f.logger.Debug("frame stream write failed", "artifact_id", id, "error", err)
				return
			}
		}
	}
}

// screenshot accepts a captured raster posted back by a frame and
// dispatches it into the bridge. The body must carry the artifact id
// matching the URL; a response nobody is waiting for is acknowledged
// and dropped.
func (f *framesHandler) screenshot(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var resp bridge.Response
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&resp); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid screenshot payload", f.logger)
		return
	}
	if resp.ID == "" || resp.Screenshot == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "screenshot and id are required", f.logger)
		return
	}
	if resp.ID != id {
		writeError(w, http.StatusBadRequest, "id_mismatch", "payload id does not match URL", f.logger)
		return
	}

	delivered := f.bridge.Dispatch(resp)
	writeJSON(w, http.StatusOK, map[string]bool{"delivered": delivered})
}
