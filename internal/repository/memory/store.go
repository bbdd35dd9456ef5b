// Package memory is an in-process EmbeddingStore with the same semantics
// as the postgres repositories. It backs tests and STORE_DRIVER=memory runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"docrag/internal/models"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/segmentio/ksuid"
	"gorm.io/datatypes"
)

type Store struct {
	mu sync.RWMutex

	docs   map[string]*models.Document // by name
	byID   map[string]*models.Document
	order  []*models.Document // insertion order
	chunks map[string][]models.DocumentChunk // by document id

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		docs:   make(map[string]*models.Document),
		byID:   make(map[string]*models.Document),
		chunks: make(map[string][]models.DocumentChunk),
		now:    time.Now,
	}
}

// ReplaceDocument stores name with exactly the given chunks.
func (s *Store) ReplaceDocument(ctx context.Context, name string, metadata map[string]any, chunks []models.NewChunk) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.upsertLocked(name, metadata)
	s.chunks[doc.ID] = buildChunks(doc.ID, chunks)
	return cloneDocument(doc), nil
}

// UpsertDocument inserts the document or refreshes its timestamp and metadata.
func (s *Store) UpsertDocument(ctx context.Context, name string, metadata map[string]any) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneDocument(s.upsertLocked(name, metadata)), nil
}

// ReplaceChunks swaps a document's chunk set.
func (s *Store) ReplaceChunks(ctx context.Context, docID string, chunks []models.NewChunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[docID]; !ok {
		return &models.StatementError{Op: "insert chunks", Document: docID, Values: []any{docID, len(chunks)}, Err: models.ErrNotFound}
	}
	s.chunks[docID] = buildChunks(docID, chunks)
	return nil
}

func (s *Store) upsertLocked(name string, metadata map[string]any) *models.Document {
	if metadata == nil {
		metadata = map[string]any{}
	}

	doc, ok := s.docs[name]
	if !ok {
		doc = &models.Document{ID: ksuid.New().String(), DocName: name}
		s.docs[name] = doc
		s.byID[doc.ID] = doc
		s.order = append(s.order, doc)
	}
	doc.Metadata = datatypes.JSONMap(copyMap(metadata))
	doc.CreatedAt = s.now()
	return doc
}

func buildChunks(docID string, chunks []models.NewChunk) []models.DocumentChunk {
	rows := make([]models.DocumentChunk, len(chunks))
	for i, c := range chunks {
		rows[i] = models.DocumentChunk{
			ID:        ksuid.New().String(),
			DocID:     docID,
			Position:  i,
			Chunk:     pq.StringArray(append([]string(nil), c.Lines...)),
			Embedding: pgvector.NewVector(append([]float32(nil), c.Embedding...)),
		}
	}
	return rows
}

// Search ranks every chunk by negative inner product with vec, ascending.
// Ties keep document insertion order, then chunk position.
func (s *Store) Search(ctx context.Context, vec []float32, k int) ([]models.ChunkHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []models.ChunkHit
	for _, doc := range s.order {
		for _, c := range s.chunks[doc.ID] {
			stored := c.Embedding.Slice()
			if len(stored) != len(vec) {
				return nil, fmt.Errorf("stored vector has %d values, query has %d: %w",
					len(stored), len(vec), models.ErrEmbeddingDimensionMismatch)
			}
			all = append(all, models.ChunkHit{
				ID:       c.ID,
				DocID:    c.DocID,
				Chunk:    append(pq.StringArray(nil), c.Chunk...),
				Distance: -dot(stored, vec),
			})
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Distance < all[j].Distance
	})

	if k >= 0 && k < len(all) {
		all = all[:k]
	}
	return all, nil
}

// ListDocuments returns every document with its chunk count, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]models.DocumentSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := append([]*models.Document(nil), s.order...)
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	summaries := make([]models.DocumentSummary, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, models.DocumentSummary{
			ID:         doc.ID,
			DocName:    doc.DocName,
			CreatedAt:  doc.CreatedAt,
			ChunkCount: len(s.chunks[doc.ID]),
		})
	}
	return summaries, nil
}

// GetByID retrieves a document by its KSUID.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	return cloneDocument(doc), nil
}

// ChunksByDocument returns a document's chunks in emit order.
func (s *Store) ChunksByDocument(ctx context.Context, docID string) ([]models.DocumentChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.chunks[docID]
	out := make([]models.DocumentChunk, len(stored))
	for i, c := range stored {
		out[i] = withoutVector(c)
	}
	return out, nil
}

// ChunkByID reads back one chunk.
func (s *Store) ChunkByID(ctx context.Context, id string) (*models.DocumentChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, chunks := range s.chunks {
		for _, c := range chunks {
			if c.ID == id {
				out := withoutVector(c)
				return &out, nil
			}
		}
	}
	return nil, fmt.Errorf("chunk %s: %w", id, models.ErrNotFound)
}

func withoutVector(c models.DocumentChunk) models.DocumentChunk {
	return models.DocumentChunk{
		ID:       c.ID,
		DocID:    c.DocID,
		Position: c.Position,
		Chunk:    append(pq.StringArray(nil), c.Chunk...),
	}
}

func cloneDocument(d *models.Document) *models.Document {
	out := *d
	out.Metadata = datatypes.JSONMap(copyMap(d.Metadata))
	return &out
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
