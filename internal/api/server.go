package api

import (
	"log/slog"
	"net/http"

	"github.com/sketchrun/sketchrun/internal/bridge"
	"github.com/sketchrun/sketchrun/internal/generate"
	"github.com/sketchrun/sketchrun/internal/preview"
)

const defaultRateBurst = 60

// ServerConfig carries the server's collaborators and HTTP policy.
type ServerConfig struct {
	Logger    *slog.Logger
	Pipeline  *generate.Pipeline
	Artifacts *preview.Store
	Bridge    *bridge.Bridge
	Frames    *FrameHub
	Settings  Settings

	// ProxyUpstream resolves the model endpoint for the pass-through
	// route at request time, so settings changes apply immediately.
	ProxyUpstream func() string

	CORSOrigins []string
	TrustProxy  bool
	RateBurst   int
}

// NewServer builds the HTTP handler: routes behind the middleware
// chain, /health outside it for probes.
func NewServer(cfg ServerConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = defaultRateBurst
	}

	artifacts := &artifactsHandler{
		pipeline:  cfg.Pipeline,
		artifacts: cfg.Artifacts,
		bridge:    cfg.Bridge,
		logger:    logger.With("component", "api"),
	}
	frames := &framesHandler{
		hub:    cfg.Frames,
		bridge: cfg.Bridge,
		logger: logger.With("component", "frames"),
	}
	settings := &settingsHandler{
		settings: cfg.Settings,
		logger:   logger.With("component", "settings"),
	}
	proxy := newProxyHandler(cfg.ProxyUpstream, logger.With("component", "proxy"))

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/generate", artifacts.generate)
	mux.HandleFunc("GET /api/v1/artifacts", artifacts.list)
	mux.HandleFunc("GET /api/v1/artifacts/{id}", artifacts.get)
	mux.HandleFunc("DELETE /api/v1/artifacts/{id}", artifacts.remove)
	mux.HandleFunc("POST /api/v1/artifacts/{id}/view", artifacts.toggleView)
	mux.HandleFunc("POST /api/v1/artifacts/{id}/editing", artifacts.setEditing)
	mux.HandleFunc("POST /api/v1/artifacts/{id}/resize", artifacts.resize)
	mux.HandleFunc("POST /api/v1/artifacts/{id}/export", artifacts.export)

	mux.HandleFunc("GET /api/v1/frames/{id}/events", frames.events)
	mux.HandleFunc("POST /api/v1/frames/{id}/screenshot", frames.screenshot)

	mux.HandleFunc("GET /api/v1/settings", settings.get)
	mux.HandleFunc("PUT /api/v1/settings", settings.put)

	mux.HandleFunc("POST /api/generate", proxy.generate)

	limiter := newRateLimiter(1, burst)

	var handler http.Handler = mux
	handler = rateLimitMiddleware(limiter, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	root := http.NewServeMux()
	root.HandleFunc("GET /health", health)
	root.Handle("/", handler)
	return root
}
