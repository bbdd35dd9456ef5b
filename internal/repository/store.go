package repository

import "gorm.io/gorm"

// Store is the postgres-backed EmbeddingStore: documents and their chunks
// behind one value.
type Store struct {
	*DocumentRepositoryImpl
	*ChunkRepositoryImpl
}

// NewStore builds both repositories on the same connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		DocumentRepositoryImpl: NewDocumentRepository(db),
		ChunkRepositoryImpl:    NewChunkRepository(db),
	}
}
