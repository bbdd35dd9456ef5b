// Package llm talks to OpenAI-compatible embedding and chat endpoints.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"docrag/internal/models"
)

/*
LEARNING: ONE CLIENT, TWO ENDPOINTS

Embeddings and answers usually come from different servers: a small
sentence-embedding model next to the store, a bigger chat model elsewhere.
Both speak the OpenAI wire format, so one go-openai client per base URL is
all we need. Every vector leaves this package L2-normalised, which makes
the store's inner-product search a cosine search.
*/

// Config for both endpoints.
type Config struct {
	EmbeddingBaseURL string
	EmbeddingAPIKey  string
	EmbeddingModel   string
	Dimension        int

	ChatBaseURL string
	ChatAPIKey  string
	ChatModel   string
	MaxTokens   int

	// HTTPClient is optional.
	HTTPClient *http.Client
}

// ChatMessage represents a message in chat completion
type ChatMessage struct {
	Role    string // "system", "user", or "assistant"
	Content string
}

// CompletionOptions are the sampling knobs for one completion.
type CompletionOptions struct {
	Temperature float32
	TopP        float32
	MaxTokens   int
}

type Client struct {
	embeddings *openai.Client
	chat       *openai.Client

	embeddingModel string
	dimension      int
	chatModel      string
	maxTokens      int
}

// NewClient builds the embedding and chat clients.
func NewClient(cfg Config) *Client {
	return &Client{
		embeddings:     openai.NewClientWithConfig(clientConfig(cfg.EmbeddingAPIKey, cfg.EmbeddingBaseURL, cfg.HTTPClient)),
		chat:           openai.NewClientWithConfig(clientConfig(cfg.ChatAPIKey, cfg.ChatBaseURL, cfg.HTTPClient)),
		embeddingModel: cfg.EmbeddingModel,
		dimension:      cfg.Dimension,
		chatModel:      cfg.ChatModel,
		maxTokens:      cfg.MaxTokens,
	}
}

func clientConfig(apiKey, baseURL string, httpClient *http.Client) openai.ClientConfig {
	cc := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cc.BaseURL = baseURL
	}
	if httpClient != nil {
		cc.HTTPClient = httpClient
	}
	return cc
}

// Dimension is the configured embedding width.
func (c *Client) Dimension() int {
	return c.dimension
}

// Embed returns the unit-length embedding of text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.embeddings.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(c.embeddingModel),
		Dimensions: c.dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embeddings returned")
	}

	vec := resp.Data[0].Embedding
	if c.dimension > 0 && len(vec) != c.dimension {
		return nil, fmt.Errorf("model %s returned %d values, configured %d: %w",
			c.embeddingModel, len(vec), c.dimension, models.ErrEmbeddingDimensionMismatch)
	}
	return Normalize(vec)
}

// CheckDimension embeds a sample sentence so a misconfigured model width is
// reported at startup instead of on the first document.
func (c *Client) CheckDimension(ctx context.Context) error {
	_, err := c.Embed(ctx, "dimension check")
	return err
}

// ChatCompletion generates a chat completion
// Learning: zero options fall back to the configured max tokens
func (c *Client) ChatCompletion(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (string, error) {
	apiMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		apiMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    apiMessages,
		MaxTokens:   maxTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion returned")
	}
	return resp.Choices[0].Message.Content, nil
}
