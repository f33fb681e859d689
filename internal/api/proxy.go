package api

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// proxyHandler forwards model-provider requests verbatim to the
// configured upstream. Local canvas clients talk to the same origin
// they were served from; this route relays their raw provider calls so
// the browser never needs a CORS exemption for the model host.
type proxyHandler struct {
	upstream func() string
	client   *http.Client
	logger   *slog.Logger
}

func newProxyHandler(upstream func() string, logger *slog.Logger) *proxyHandler {
	return &proxyHandler{
		upstream: upstream,
		// Generations can run minutes on local hardware.
		client: &http.Client{Timeout: 5 * time.Minute},
		logger: logger,
	}
}

func (p *proxyHandler) generate(w http.ResponseWriter, r *http.Request) {
	upstream := strings.TrimSpace(p.upstream())
	if upstream == "" {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "model endpoint is not configured",
		})
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, upstream,
		http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("proxy request failed", "upstream", upstream, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "upstream request failed"})
		return
	}
	defer resp.Body.Close()

	// Pass the upstream's body and status through untouched; the
	// client depends on the provider's exact response shape.
	w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		p.logger.Debug("proxy response copy failed", "error", err)
	}
}
