package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"docrag/internal/middleware"
	"docrag/internal/models"
	"docrag/internal/services"

	"github.com/gorilla/mux"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100
)

// Handler handles HTTP requests
type Handler struct {
	docs      DocumentReader
	retriever Retriever
	ingest    IngestRunner
	progress  ProgressStream
}

// NewHandler wires the handlers. ingest and progress may be nil when the
// server runs read-only.
func NewHandler(docs DocumentReader, retriever Retriever, ingest IngestRunner, progress ProgressStream) *Handler {
	return &Handler{
		docs:      docs,
		retriever: retriever,
		ingest:    ingest,
		progress:  progress,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "ok"}
	if h.ingest != nil {
		resp["queue_length"] = h.ingest.QueueLength()
	}
	if h.progress != nil {
		resp["progress_clients"] = h.progress.ClientCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Document handlers

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	documents, err := h.docs.ListDocuments(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": documents,
		"count":     len(documents),
	})
}

func (h *Handler) GetDocumentChunks(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	doc, err := h.docs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	chunks, err := h.docs.ChunksByDocument(r.Context(), doc.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"document": doc,
		"chunks":   chunks,
		"count":    len(chunks),
	})
}

// Retrieval handlers

type queryRequest struct {
	Query       string `json:"query"`
	Limit       int    `json:"limit,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Temperature int    `json:"temperature,omitempty"`
}

func decodeQuery(w http.ResponseWriter, r *http.Request) (*queryRequest, bool) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}

func (h *Handler) Retrieve(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQuery(w, r)
	if !ok {
		return
	}

	retrieved, err := h.retriever.Retrieve(r.Context(), req.Query)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":   req.Query,
		"context": retrieved,
	})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQuery(w, r)
	if !ok {
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	results, err := h.retriever.Search(r.Context(), req.Query, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":   req.Query,
		"results": results,
		"count":   len(results),
	})
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQuery(w, r)
	if !ok {
		return
	}

	answer, err := h.retriever.Ask(r.Context(), req.Query, services.ParseAskMode(req.Mode), req.Temperature)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// Ingest handlers

// Ingest queues a batch and returns immediately; progress is pushed on /ws/progress.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	if h.ingest == nil {
		http.Error(w, "ingestion is disabled", http.StatusServiceUnavailable)
		return
	}

	runID, err := h.ingest.Submit(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"message":      "Ingest batch submitted",
		"run_id":       runID,
		"queue_length": h.ingest.QueueLength(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("⚠️  Failed to encode response: %v", err)
	}
}

// writeError maps pipeline errors onto status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrEmbeddingDimensionMismatch), errors.Is(err, models.ErrZeroVector):
		status = http.StatusBadGateway
	case errors.Is(err, models.ErrStoreConnection):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		log.Printf("❌ [%s] %s %s: %v", middleware.GetRequestID(r.Context()), r.Method, r.URL.Path, err)
	}
	http.Error(w, err.Error(), status)
}
