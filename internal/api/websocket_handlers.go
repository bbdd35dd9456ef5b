package api

import (
	"net/http"
)

// HandleProgressWebSocket streams ingest progress events to the client.
func (h *Handler) HandleProgressWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.progress == nil {
		http.Error(w, "progress stream is disabled", http.StatusServiceUnavailable)
		return
	}
	h.progress.ServeWS(w, r)
}
