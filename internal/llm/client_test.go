package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/models"
)

type fakeServer struct {
	embedding []float32
	answer    string

	lastEmbedding map[string]any
	lastChat      map[string]any
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/v1/embeddings":
		_ = json.NewDecoder(r.Body).Decode(&f.lastEmbedding)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "test-embed",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": f.embedding},
			},
		})
	case "/v1/chat/completions":
		_ = json.NewDecoder(r.Body).Decode(&f.lastChat)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-chat",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": f.answer},
				},
			},
		})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, f *fakeServer, dim int) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		EmbeddingBaseURL: srv.URL + "/v1",
		EmbeddingModel:   "test-embed",
		Dimension:        dim,
		ChatBaseURL:      srv.URL + "/v1",
		ChatModel:        "test-chat",
		MaxTokens:        256,
	})
}

func TestEmbed_Normalises(t *testing.T) {
	f := &fakeServer{embedding: []float32{3, 4}}
	c := newTestClient(t, f, 2)

	vec, err := c.Embed(context.Background(), "Atlas stores metadata.")
	require.NoError(t, err)

	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)
	assert.InDelta(t, 1.0, Norm(vec), 1e-6)

	assert.Equal(t, "test-embed", f.lastEmbedding["model"])
	assert.EqualValues(t, 2, f.lastEmbedding["dimensions"])
}

func TestEmbed_DimensionMismatch(t *testing.T) {
	c := newTestClient(t, &fakeServer{embedding: []float32{1, 2, 3}}, 384)

	_, err := c.Embed(context.Background(), "Atlas")
	assert.ErrorIs(t, err, models.ErrEmbeddingDimensionMismatch)

	assert.ErrorIs(t, c.CheckDimension(context.Background()), models.ErrEmbeddingDimensionMismatch)
}

func TestEmbed_ZeroVector(t *testing.T) {
	c := newTestClient(t, &fakeServer{embedding: []float32{0, 0}}, 2)

	_, err := c.Embed(context.Background(), "Atlas")
	assert.ErrorIs(t, err, models.ErrZeroVector)
}

func TestChatCompletion(t *testing.T) {
	f := &fakeServer{answer: "Atlas is a metadata service."}
	c := newTestClient(t, f, 2)

	answer, err := c.ChatCompletion(context.Background(), []ChatMessage{
		{Role: "user", Content: "What is Atlas?"},
	}, CompletionOptions{Temperature: 0.7, TopP: 0.95})
	require.NoError(t, err)

	assert.Equal(t, "Atlas is a metadata service.", answer)
	assert.Equal(t, "test-chat", f.lastChat["model"])
	assert.EqualValues(t, 256, f.lastChat["max_tokens"])
	assert.InDelta(t, 0.7, f.lastChat["temperature"], 1e-6)
	assert.InDelta(t, 0.95, f.lastChat["top_p"], 1e-6)
}

func TestNormalize(t *testing.T) {
	in := []float32{1, 2, 2}
	out, err := Normalize(in)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, Norm(out), 1e-6)
	assert.Equal(t, []float32{1, 2, 2}, in, "input must not be modified")

	_, err = Normalize(nil)
	assert.ErrorIs(t, err, models.ErrZeroVector)
}
