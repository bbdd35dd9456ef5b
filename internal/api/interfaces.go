package api

import (
	"context"
	"net/http"

	"docrag/internal/models"
	"docrag/internal/services"
)

/*
LEARNING: CONSUMER-DRIVEN INTERFACES (Go Idiom)

The handlers are the CONSUMER, so the interfaces live here and declare only
the methods a handler calls. The postgres store and the in-memory store both
satisfy DocumentReader; tests hand in small fakes.
*/

// DocumentReader is the read side of the store.
type DocumentReader interface {
	ListDocuments(ctx context.Context) ([]models.DocumentSummary, error)
	GetByID(ctx context.Context, id string) (*models.Document, error)
	ChunksByDocument(ctx context.Context, docID string) ([]models.DocumentChunk, error)
}

// Retriever answers queries from the stored chunks.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
	Search(ctx context.Context, query string, k int) ([]models.ChunkHit, error)
	Ask(ctx context.Context, query string, mode services.AskMode, temperature int) (*services.Answer, error)
}

// IngestRunner queues batches for the background worker.
type IngestRunner interface {
	Submit(ctx context.Context) (string, error)
	QueueLength() int
}

// ProgressStream upgrades a request to the progress websocket.
type ProgressStream interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
	ClientCount() int
}
