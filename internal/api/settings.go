package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sketchrun/sketchrun/internal/config"
)

// Settings exposes the user-adjustable generation configuration.
// Satisfied by *config.Store.
type Settings interface {
	Snapshot() config.Config
	Update(model, endpoint string) error
}

type settingsHandler struct {
	settings Settings
	logger   *slog.Logger
}

// settingsBody is the wire shape for both GET and PUT.
type settingsBody struct {
	ModelName string `json:"model_name"`
	Endpoint  string `json:"endpoint"`
}

func (h *settingsHandler) get(w http.ResponseWriter, _ *http.Request) {
	cfg := h.settings.Snapshot()
	writeJSON(w, http.StatusOK, settingsBody{
		ModelName: cfg.ModelName,
		Endpoint:  cfg.Endpoint,
	})
}

func (h *settingsHandler) put(w http.ResponseWriter, r *http.Request) {
	var req settingsBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}

	if err := h.settings.Update(req.ModelName, req.Endpoint); err != nil {
		switch {
		case errors.Is(err, config.ErrInvalidModelName), errors.Is(err, config.ErrInvalidEndpoint):
			writeError(w, http.StatusBadRequest, "invalid_settings", err.Error(), h.logger)
		default:
			// Persistence failed; in-memory settings were not touched.
			writeError(w, http.StatusInternalServerError, "save_failed", err.Error(), h.logger)
		}
		return
	}

	cfg := h.settings.Snapshot()
	writeJSON(w, http.StatusOK, settingsBody{
		ModelName: cfg.ModelName,
		Endpoint:  cfg.Endpoint,
	})
}
