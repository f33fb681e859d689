package api

import "net/http"

// health is a simple liveness endpoint for Docker/Kubernetes probes.
func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
