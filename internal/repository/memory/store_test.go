package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/models"
)

func unit(x, y float32) []float32 { return []float32{x, y} }

func TestReplaceDocument_ReprocessReplacesChunks(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	first, err := s.ReplaceDocument(ctx, "guide_docx.txt", map[string]any{"type": "doc"}, []models.NewChunk{
		{Lines: []string{"a.", "b."}, Embedding: unit(1, 0)},
		{Lines: []string{"c."}, Embedding: unit(0, 1)},
	})
	require.NoError(t, err)

	firstChunks, err := s.ChunksByDocument(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, firstChunks, 2)

	second, err := s.ReplaceDocument(ctx, "guide_docx.txt", nil, []models.NewChunk{
		{Lines: []string{"d."}, Embedding: unit(0, 1)},
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "document identity is its name")
	assert.False(t, second.CreatedAt.Before(first.CreatedAt))

	chunks, err := s.ChunksByDocument(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"d."}, []string(chunks[0].Chunk))
	assert.Equal(t, 0, chunks[0].Position)

	// No chunk from the first run is reachable any more.
	for _, c := range firstChunks {
		assert.NotEqual(t, c.ID, chunks[0].ID)
		_, err := s.ChunkByID(ctx, c.ID)
		assert.ErrorIs(t, err, models.ErrNotFound, c.ID)
	}

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 1, docs[0].ChunkCount)
}

func TestReplaceDocument_RefreshesCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	_, err := s.ReplaceDocument(ctx, "a", nil, nil)
	require.NoError(t, err)

	clock = clock.Add(time.Hour)
	doc, err := s.ReplaceDocument(ctx, "a", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, clock, doc.CreatedAt)
}

func TestSearch_OrdersByInnerProduct(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.ReplaceDocument(ctx, "doc", nil, []models.NewChunk{
		{Lines: []string{"far"}, Embedding: unit(0, 1)},
		{Lines: []string{"near"}, Embedding: unit(1, 0)},
		{Lines: []string{"middle"}, Embedding: unit(0.6, 0.8)},
	})
	require.NoError(t, err)

	hits, err := s.Search(ctx, unit(1, 0), 2)
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, []string{"near"}, []string(hits[0].Chunk))
	assert.Equal(t, []string{"middle"}, []string(hits[1].Chunk))
	assert.InDelta(t, -1.0, hits[0].Distance, 1e-6)
	assert.Less(t, hits[0].Distance, hits[1].Distance)
}

func TestSearch_PreservesLineOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	lines := []string{"third alphabetically.", "first.", "second."}
	_, err := s.ReplaceDocument(ctx, "doc", nil, []models.NewChunk{{Lines: lines, Embedding: unit(1, 0)}})
	require.NoError(t, err)

	hits, err := s.Search(ctx, unit(1, 0), 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, lines, []string(hits[0].Chunk))
}

func TestSearch_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.ReplaceDocument(ctx, "doc", nil, []models.NewChunk{{Lines: []string{"x"}, Embedding: unit(1, 0)}})
	require.NoError(t, err)

	_, err = s.Search(ctx, []float32{1, 0, 0}, 4)
	assert.ErrorIs(t, err, models.ErrEmbeddingDimensionMismatch)
}

func TestChunkByID(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	doc, err := s.ReplaceDocument(ctx, "doc", nil, []models.NewChunk{{Lines: []string{"x"}, Embedding: unit(1, 0)}})
	require.NoError(t, err)
	chunks, err := s.ChunksByDocument(ctx, doc.ID)
	require.NoError(t, err)

	got, err := s.ChunkByID(ctx, chunks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.DocID)

	_, err = s.ChunkByID(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpsertThenReplaceChunks(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	doc, err := s.UpsertDocument(ctx, "doc", map[string]any{"text_path": "texts/doc.txt"})
	require.NoError(t, err)
	assert.Equal(t, "texts/doc.txt", doc.Metadata["text_path"])

	require.NoError(t, s.ReplaceChunks(ctx, doc.ID, []models.NewChunk{{Lines: []string{"x"}, Embedding: unit(1, 0)}}))

	err = s.ReplaceChunks(ctx, "missing", nil)
	assert.ErrorIs(t, err, models.ErrStoreStatement)
}

func TestGetByID(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	doc, err := s.UpsertDocument(ctx, "doc", nil)
	require.NoError(t, err)

	got, err := s.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "doc", got.DocName)

	_, err = s.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
