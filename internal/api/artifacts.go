package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/sketchrun/sketchrun/internal/bridge"
	"github.com/sketchrun/sketchrun/internal/extract"
	"github.com/sketchrun/sketchrun/internal/generate"
	"github.com/sketchrun/sketchrun/internal/llm"
	"github.com/sketchrun/sketchrun/internal/preview"
	"github.com/sketchrun/sketchrun/internal/prompt"
)

// artifactsHandler serves the generation trigger and artifact CRUD.
type artifactsHandler struct {
	pipeline  *generate.Pipeline
	artifacts *preview.Store
	bridge    *bridge.Bridge
	logger    *slog.Logger
}

// generateRequest is the body of POST /api/v1/generate.
type generateRequest struct {
	Image       string   `json:"image"`
	Text        []string `json:"text"`
	Theme       string   `json:"theme"`
	PreviousIDs []string `json:"previous_ids"`
	TargetID    string   `json:"target_id"`
}

func (h *artifactsHandler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if req.Image == "" {
		writeError(w, http.StatusBadRequest, "missing_image", "image is required", h.logger)
		return
	}

	priorIDs, err := parseUUIDs(req.PreviousIDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "previous_ids must be valid UUIDs", h.logger)
		return
	}
	targetID := uuid.Nil
	if req.TargetID != "" {
		targetID, err = uuid.Parse(req.TargetID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_id", "target_id must be a valid UUID", h.logger)
			return
		}
	}

	artifact, err := h.pipeline.Run(r.Context(), generate.Input{
		Capture: generate.Capture{
			ImageDataURL: req.Image,
			Text:         req.Text,
		},
		Theme:    prompt.Theme(req.Theme),
		PriorIDs: priorIDs,
		TargetID: targetID,
	})
	if err != nil {
		h.writeGenerateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, artifact)
}

// writeGenerateError maps pipeline failures onto the API surface. The
// model and extraction stages are upstream failures (502, 422 when the
// endpoint was never configured), never 500s.
func (h *artifactsHandler) writeGenerateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		writeError(w, http.StatusUnprocessableEntity, "not_configured", "model endpoint is not configured", h.logger)
	case errors.Is(err, llm.ErrModelUnavailable):
		writeError(w, http.StatusBadGateway, "model_unavailable", err.Error(), h.logger)
	case errors.Is(err, extract.ErrNoDocument):
		writeError(w, http.StatusBadGateway, "extraction_failed", "model response contained no HTML document", h.logger)
	case errors.Is(err, generate.ErrGenerationInFlight):
		writeError(w, http.StatusConflict, "generation_in_flight", err.Error(), h.logger)
	case errors.Is(err, preview.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error(), h.logger)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error(), h.logger)
	}
}

func (h *artifactsHandler) list(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"artifacts": h.artifacts.List()})
}

func (h *artifactsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	artifact, err := h.artifacts.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err.Error(), h.logger)
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

func (h *artifactsHandler) toggleView(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	mode, err := h.artifacts.ToggleView(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err.Error(), h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"view_mode": string(mode)})
}

func (h *artifactsHandler) setEditing(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Editing bool `json:"editing"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if err := h.artifacts.SetEditing(id, req.Editing); err != nil {
		writeError(w, http.StatusNotFound, "not_found", err.Error(), h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"editing": req.Editing})
}

func (h *artifactsHandler) resize(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Width  float64 `json:"w"`
		Height float64 `json:"h"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if err := h.artifacts.Resize(id, req.Width, req.Height); err != nil {
		switch {
		case errors.Is(err, preview.ErrInvalidDimensions):
			writeError(w, http.StatusBadRequest, "invalid_dimensions", err.Error(), h.logger)
		default:
			writeError(w, http.StatusNotFound, "not_found", err.Error(), h.logger)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"w": req.Width, "h": req.Height})
}

func (h *artifactsHandler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	h.artifacts.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}

// export asks the artifact's connected frame for a screenshot and
// returns the captured raster. Exporting an empty artifact is refused:
// there is no rendered document to capture.
func (h *artifactsHandler) export(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	artifact, err := h.artifacts.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err.Error(), h.logger)
		return
	}
	if artifact.State() == preview.StateEmpty {
		writeError(w, http.StatusConflict, "artifact_empty", "artifact has no document to export", h.logger)
		return
	}

	screenshot, err := h.bridge.Capture(r.Context(), id.String())
	if err != nil {
		switch {
		case errors.Is(err, bridge.ErrTimeout):
			writeError(w, http.StatusGatewayTimeout, "export_timeout", "frame did not respond in time", h.logger)
		case errors.Is(err, bridge.ErrFrameNotFound):
			writeError(w, http.StatusNotFound, "frame_not_found", "no frame connected for artifact", h.logger)
		case errors.Is(err, bridge.ErrExportInFlight):
			writeError(w, http.StatusConflict, "export_in_flight", err.Error(), h.logger)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error(), h.logger)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"screenshot": screenshot})
}

func (h *artifactsHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "artifact id must be a valid UUID", h.logger)
		return uuid.Nil, false
	}
	return id, true
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
