package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"docrag/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DocumentRepositoryImpl handles all database operations for documents using GORM
// Learning: This is the IMPLEMENTATION. It doesn't know about any interface.
// The services package will declare the interface it needs.
type DocumentRepositoryImpl struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository
// Returns concrete type - "Accept interfaces, return structs"
func NewDocumentRepository(db *gorm.DB) *DocumentRepositoryImpl {
	return &DocumentRepositoryImpl{db: db}
}

/*
LEARNING: ONE DOCUMENT, ONE TRANSACTION

Reprocessing a document touches two tables: the document row is inserted
or refreshed, its old chunks are deleted and the new ones inserted. All of
it runs inside db.Transaction, so a failure in any statement rolls the
whole document back and readers never see a half-written chunk set.
*/

// ReplaceDocument stores name with exactly the given chunks. Any failure
// rolls back and is returned as *models.StatementError.
func (r *DocumentRepositoryImpl) ReplaceDocument(ctx context.Context, name string, metadata map[string]any, chunks []models.NewChunk) (*models.Document, error) {
	var doc *models.Document

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if doc, err = upsertDocument(tx, name, metadata); err != nil {
			return err
		}
		return replaceChunks(tx, doc, chunks)
	})
	if err != nil {
		logStatementError(err)
		return nil, err
	}
	return doc, nil
}

// UpsertDocument inserts the document or refreshes its timestamp and metadata.
func (r *DocumentRepositoryImpl) UpsertDocument(ctx context.Context, name string, metadata map[string]any) (*models.Document, error) {
	doc, err := upsertDocument(r.db.WithContext(ctx), name, metadata)
	if err != nil {
		logStatementError(err)
		return nil, err
	}
	return doc, nil
}

func upsertDocument(tx *gorm.DB, name string, metadata map[string]any) (*models.Document, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}

	var doc models.Document
	err := tx.Where("doc_name = ?", name).Take(&doc).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		doc = models.Document{DocName: name, Metadata: datatypes.JSONMap(metadata)}
		// KSUID is auto-generated via BeforeCreate hook
		if err := tx.Create(&doc).Error; err != nil {
			return nil, &models.StatementError{Op: "insert document", Document: name, Values: []any{name}, Err: err}
		}
		return &doc, nil

	case err != nil:
		return nil, &models.StatementError{Op: "select document", Document: name, Values: []any{name}, Err: err}
	}

	now := time.Now()
	err = tx.Model(&doc).Updates(map[string]any{
		"created_at": now,
		"metadata":   datatypes.JSONMap(metadata),
	}).Error
	if err != nil {
		return nil, &models.StatementError{Op: "update document", Document: name, Values: []any{doc.ID, now}, Err: err}
	}
	doc.CreatedAt = now
	doc.Metadata = datatypes.JSONMap(metadata)
	return &doc, nil
}

// GetByID retrieves a document by its KSUID
func (r *DocumentRepositoryImpl) GetByID(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document

	err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &doc, nil
}

// ListDocuments returns every document with its chunk count
// Learning: KSUID is time-ordered, but created_at moves on reprocess, so we sort by it
func (r *DocumentRepositoryImpl) ListDocuments(ctx context.Context) ([]models.DocumentSummary, error) {
	var summaries []models.DocumentSummary

	err := r.db.WithContext(ctx).Raw(`
		SELECT d.id, d.doc_name, d.created_at, COUNT(c.id) AS chunk_count
		FROM documents d
		LEFT JOIN document_chunks c ON c.doc_id = d.id
		GROUP BY d.id, d.doc_name, d.created_at
		ORDER BY d.created_at DESC, d.id
	`).Scan(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	return summaries, nil
}

func logStatementError(err error) {
	var stmtErr *models.StatementError
	if errors.As(err, &stmtErr) {
		log.Printf("❌ Store statement %q failed for document %q with values %v: %v",
			stmtErr.Op, stmtErr.Document, stmtErr.Values, stmtErr.Err)
		return
	}
	log.Printf("❌ Store transaction failed: %v", err)
}
