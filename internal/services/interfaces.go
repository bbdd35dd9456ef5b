package services

import (
	"context"

	"docrag/internal/extract"
	"docrag/internal/llm"
	"docrag/internal/models"
	"docrag/internal/services/notify"
)

/*
LEARNING: GO INTERFACE BEST PRACTICE

"Accept interfaces, return structs"

Interfaces are defined where they are USED. The services below only
declare the methods they call, so the postgres store, the in-memory
store and the test fakes all plug in without knowing about each other.
*/

// FormatSniffer classifies a file that has no usable extension.
type FormatSniffer interface {
	Sniff(path string) (models.FileType, error)
}

// TextExtractor turns a file of a known type into raw lines.
type TextExtractor interface {
	Extract(ctx context.Context, t models.FileType, path string) (*extract.Result, error)
}

// TextNormalizer cleans raw lines into one normalised text.
type TextNormalizer interface {
	Normalize(lines []string, extraIgnore ...string) string
}

// SentenceSplitter segments normalised text.
type SentenceSplitter interface {
	Split(text string) []string
}

// Embedder returns unit-length vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChatModel generates answers.
type ChatModel interface {
	ChatCompletion(ctx context.Context, messages []llm.ChatMessage, opts llm.CompletionOptions) (string, error)
}

// DocumentStore persists a document and its chunk set atomically.
type DocumentStore interface {
	ReplaceDocument(ctx context.Context, name string, metadata map[string]any, chunks []models.NewChunk) (*models.Document, error)
}

// ChunkSearcher ranks stored chunks against a query vector.
type ChunkSearcher interface {
	Search(ctx context.Context, vec []float32, k int) ([]models.ChunkHit, error)
}

// EventPublisher receives progress events.
type EventPublisher interface {
	Publish(ev notify.Event)
}

type discardEvents struct{}

func (discardEvents) Publish(notify.Event) {}
