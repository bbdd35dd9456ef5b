package repository

import (
	"context"
	"errors"
	"fmt"

	"docrag/internal/models"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// insertBatchSize bounds one multi-row INSERT of chunks.
const insertBatchSize = 100

// ChunkRepositoryImpl handles vector operations using pgvector
// This is the IMPLEMENTATION - doesn't know about interfaces
type ChunkRepositoryImpl struct {
	db *gorm.DB
}

// NewChunkRepository creates a new chunk repository
// Returns concrete type - consumer will use interface
func NewChunkRepository(db *gorm.DB) *ChunkRepositoryImpl {
	return &ChunkRepositoryImpl{db: db}
}

// ReplaceChunks deletes the document's chunks and inserts the new set.
func (r *ChunkRepositoryImpl) ReplaceChunks(ctx context.Context, docID string, chunks []models.NewChunk) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceChunks(tx, &models.Document{ID: docID, DocName: docID}, chunks)
	})
	if err != nil {
		logStatementError(err)
	}
	return err
}

func replaceChunks(tx *gorm.DB, doc *models.Document, chunks []models.NewChunk) error {
	if err := tx.Where("doc_id = ?", doc.ID).Delete(&models.DocumentChunk{}).Error; err != nil {
		return &models.StatementError{Op: "delete chunks", Document: doc.DocName, Values: []any{doc.ID}, Err: err}
	}
	if len(chunks) == 0 {
		return nil
	}

	rows := make([]models.DocumentChunk, len(chunks))
	for i, c := range chunks {
		rows[i] = models.DocumentChunk{
			DocID:     doc.ID,
			Position:  i,
			Chunk:     pq.StringArray(c.Lines),
			Embedding: pgvector.NewVector(c.Embedding),
		}
	}

	if err := tx.CreateInBatches(rows, insertBatchSize).Error; err != nil {
		return &models.StatementError{Op: "insert chunks", Document: doc.DocName, Values: []any{doc.ID, len(rows)}, Err: err}
	}
	return nil
}

// Search returns the k chunks with the largest inner product with vec.
// Learning: <#> is pgvector's NEGATIVE inner product, so ascending order is
// most-similar first. For unit vectors this is cosine similarity.
func (r *ChunkRepositoryImpl) Search(ctx context.Context, vec []float32, k int) ([]models.ChunkHit, error) {
	query := pgvector.NewVector(vec)

	var hits []models.ChunkHit
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, doc_id, chunk, embedding <#> ? AS distance
		FROM document_chunks
		ORDER BY embedding <#> ?, doc_id, position
		LIMIT ?
	`, query, query, k).Scan(&hits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to perform semantic search: %w", err)
	}

	return hits, nil
}

// ChunksByDocument returns a document's chunks in emit order, without vectors.
func (r *ChunkRepositoryImpl) ChunksByDocument(ctx context.Context, docID string) ([]models.DocumentChunk, error) {
	var chunks []models.DocumentChunk

	err := r.db.WithContext(ctx).
		Select("id", "doc_id", "position", "chunk").
		Where("doc_id = ?", docID).
		Order("position").
		Find(&chunks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", err)
	}

	return chunks, nil
}

// ChunkByID reads back one chunk.
func (r *ChunkRepositoryImpl) ChunkByID(ctx context.Context, id string) (*models.DocumentChunk, error) {
	var chunk models.DocumentChunk

	err := r.db.WithContext(ctx).
		Select("id", "doc_id", "position", "chunk").
		First(&chunk, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("chunk %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chunk: %w", err)
	}

	return &chunk, nil
}
