package api

import (
	"net/http"

	"docrag/internal/middleware"

	"github.com/gorilla/mux"
)

func SetupRoutes(h *Handler) *mux.Router {
	r := mux.NewRouter()

	// Tracing first so recovered panics land on the request span
	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.ErrorRecoveryMiddleware)
	r.Use(middleware.CORSMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	// Without this a method mismatch inside the subrouter surfaces as 404
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	api.HandleFunc("/health", h.Health).Methods("GET")

	// Documents
	api.HandleFunc("/documents", h.ListDocuments).Methods("GET")
	api.HandleFunc("/documents/{id}/chunks", h.GetDocumentChunks).Methods("GET")

	// Retrieval
	api.HandleFunc("/retrieve", h.Retrieve).Methods("POST", "OPTIONS")
	api.HandleFunc("/search", h.Search).Methods("POST", "OPTIONS")
	api.HandleFunc("/ask", h.Ask).Methods("POST", "OPTIONS")

	// Ingestion
	api.HandleFunc("/ingest", h.Ingest).Methods("POST", "OPTIONS")

	r.HandleFunc("/ws/progress", h.HandleProgressWebSocket)

	return r
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	http.Error(w, r.Method+" not allowed on "+r.URL.Path, http.StatusMethodNotAllowed)
}
