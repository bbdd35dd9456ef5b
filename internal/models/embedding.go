package models

import (
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/segmentio/ksuid"
	"gorm.io/gorm"
)

// DocumentChunk is a group of consecutive sentence lines and one vector for their joined text.
// The vector column width is pinned at migration time from configuration.
type DocumentChunk struct {
	ID        string          `json:"id" gorm:"type:char(27);primaryKey"`
	DocID     string          `json:"doc_id" gorm:"column:doc_id;type:char(27);not null;index"`
	Position  int             `json:"position" gorm:"not null"`
	Chunk     pq.StringArray  `json:"chunk" gorm:"column:chunk;type:text[];not null"`
	Embedding pgvector.Vector `json:"-" gorm:"type:vector;not null"`
}

// BeforeCreate hook generates KSUID before inserting
func (c *DocumentChunk) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = ksuid.New().String()
	}
	return nil
}

// TableName override
func (DocumentChunk) TableName() string {
	return "document_chunks"
}

// Text joins the chunk lines the way they were embedded.
func (c *DocumentChunk) Text() string {
	return strings.Join(c.Chunk, " ")
}

// NewChunk is what the ingest pipeline hands to the store: lines plus a unit vector.
type NewChunk struct {
	Lines     []string
	Embedding []float32
}

// ChunkHit is one nearest-neighbour result.
// Distance follows pgvector's <#> convention: the negated inner product,
// so smaller is more similar.
type ChunkHit struct {
	ID       string         `json:"id"`
	DocID    string         `json:"doc_id"`
	Chunk    pq.StringArray `json:"chunk" gorm:"column:chunk;type:text[]"`
	Distance float64        `json:"distance"`
}
