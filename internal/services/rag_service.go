package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docrag/internal/llm"
	"docrag/internal/middleware"
	"docrag/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

/*
LEARNING: RAG (Retrieval Augmented Generation)

Flow:
  User Question
    ↓
  Embed (unit vector)
    ↓
  Nearest chunks by inner product
    ↓
  Flatten their lines, drop repeats, stop at the word budget
    ↓
  Context string → prompt → LLM

Ask can also put the bare question to the same model, so an answer with
context can be compared against one without.
*/

// PoorQuestionAnswer is returned for questions too short to search for.
const PoorQuestionAnswer = "Ask a good question"

// NoContextAnswer is returned when nothing relevant is stored.
const NoContextAnswer = "I don't have enough context to answer this question."

const (
	defaultTemperature = 7
	answerTopP         = 0.95
)

// AskMode selects which answers Ask produces.
type AskMode string

const (
	// AskModeAnswer asks the model the bare question, without retrieval.
	AskModeAnswer AskMode = "answer"
	// AskModeContext asks the model with the retrieved context.
	AskModeContext AskMode = "context"
	// AskModeBoth produces both answers so they can be compared.
	AskModeBoth AskMode = "both"
)

// ParseAskMode maps an empty or unknown mode to AskModeBoth.
func ParseAskMode(s string) AskMode {
	switch AskMode(strings.ToLower(strings.TrimSpace(s))) {
	case AskModeAnswer:
		return AskModeAnswer
	case AskModeContext:
		return AskModeContext
	}
	return AskModeBoth
}

// Reply is one model answer and how long it took.
type Reply struct {
	Text      string `json:"text"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// Answer is the result of Ask. Answer holds the plain answer (answer and
// both modes), ContextAnswer the answer from retrieved context (context and
// both modes) and Context the context it was given.
type Answer struct {
	Question      string  `json:"question"`
	Mode          AskMode `json:"mode"`
	Answer        *Reply  `json:"answer,omitempty"`
	ContextAnswer *Reply  `json:"context_answer,omitempty"`
	Context       string  `json:"context,omitempty"`
}

// RAGService handles Retrieval Augmented Generation
type RAGService struct {
	embedder Embedder
	searcher ChunkSearcher
	chat     ChatModel

	maxTokens        int
	maxSimilarChunks int
}

// NewRAGService creates a new RAG service. chat may be nil when only
// retrieval is needed.
func NewRAGService(embedder Embedder, searcher ChunkSearcher, chat ChatModel, maxTokens, maxSimilarChunks int) *RAGService {
	return &RAGService{
		embedder:         embedder,
		searcher:         searcher,
		chat:             chat,
		maxTokens:        maxTokens,
		maxSimilarChunks: maxSimilarChunks,
	}
}

// Budget is the word budget of an assembled context.
func (s *RAGService) Budget() int {
	return s.maxTokens * s.maxSimilarChunks
}

// Retrieve returns the context string for query.
func (s *RAGService) Retrieve(ctx context.Context, query string) (string, error) {
	ctx, span := middleware.StartSpan(ctx, "RAG.Retrieve",
		attribute.String("query", query),
		attribute.Int("max_chunks", s.maxSimilarChunks),
	)
	defer span.End()

	hits, err := s.Search(ctx, query, s.maxSimilarChunks)
	if err != nil {
		return "", err
	}

	assembled := AssembleContext(hits, s.Budget())
	middleware.AddSpanEvent(ctx, "context_assembled",
		attribute.Int("hits", len(hits)),
		attribute.Int("words", len(strings.Fields(assembled))),
	)
	return assembled, nil
}

// Search embeds query and returns the k nearest chunks.
func (s *RAGService) Search(ctx context.Context, query string, k int) ([]models.ChunkHit, error) {
	ctx, span := middleware.StartSpan(ctx, "RAG.Search", attribute.Int("k", k))
	defer span.End()

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}

	hits, err := s.searcher.Search(ctx, vec, k)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	return hits, nil
}

// AssembleContext flattens the hits' lines in rank order, skipping lines
// already emitted, and stops as soon as the word count reaches budget.
func AssembleContext(hits []models.ChunkHit, budget int) string {
	seen := make(map[string]struct{})
	var (
		parts []string
		words int
	)

	for _, hit := range hits {
		for _, line := range hit.Chunk {
			if _, dup := seen[line]; dup {
				continue
			}
			seen[line] = struct{}{}
			parts = append(parts, line)

			words += len(strings.Fields(line))
			if words >= budget {
				return strings.Join(parts, " ")
			}
		}
	}
	return strings.Join(parts, " ")
}

// Ask answers query. Questions of fewer than two words get
// PoorQuestionAnswer without any model call. temperature is 1-9 (anything
// else means 7) and is sent as a tenth.
func (s *RAGService) Ask(ctx context.Context, query string, mode AskMode, temperature int) (*Answer, error) {
	ctx, span := middleware.StartSpan(ctx, "RAG.Ask",
		attribute.String("query", query),
		attribute.String("mode", string(mode)),
	)
	defer span.End()

	result := &Answer{Question: query, Mode: mode}

	if len(strings.Fields(query)) < 2 {
		result.Answer = &Reply{Text: PoorQuestionAnswer}
		return result, nil
	}
	if s.chat == nil {
		return nil, fmt.Errorf("no answer model configured")
	}
	opts := llm.CompletionOptions{
		Temperature: ScaleTemperature(temperature),
		TopP:        answerTopP,
	}

	if mode != AskModeContext {
		reply, err := s.complete(ctx, "You are a helpful assistant.", query, opts)
		if err != nil {
			return nil, err
		}
		result.Answer = reply
	}
	if mode == AskModeAnswer {
		return result, nil
	}

	retrieved, err := s.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}
	result.Context = retrieved

	if strings.TrimSpace(retrieved) == "" {
		result.ContextAnswer = &Reply{Text: NoContextAnswer}
		return result, nil
	}
	reply, err := s.complete(ctx,
		"You are a helpful assistant that answers questions based on the provided context.",
		buildRAGPrompt(query, retrieved), opts)
	if err != nil {
		return nil, err
	}
	result.ContextAnswer = reply
	return result, nil
}

func (s *RAGService) complete(ctx context.Context, system, prompt string, opts llm.CompletionOptions) (*Reply, error) {
	start := time.Now()
	answer, err := s.chat.ChatCompletion(ctx, []llm.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: prompt},
	}, opts)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, fmt.Errorf("failed to get completion: %w", err)
	}

	reply := &Reply{Text: strings.TrimSpace(answer), ElapsedMS: time.Since(start).Milliseconds()}
	middleware.AddSpanEvent(ctx, "completion_done",
		attribute.Int("answer_length", len(reply.Text)),
		attribute.Int64("elapsed_ms", reply.ElapsedMS),
	)
	return reply, nil
}

// ScaleTemperature maps the 1-9 knob to 0.1-0.9.
func ScaleTemperature(t int) float32 {
	if t < 1 || t > 9 {
		t = defaultTemperature
	}
	return float32(t) / 10
}

// buildRAGPrompt constructs the prompt for RAG
func buildRAGPrompt(query, retrieved string) string {
	return fmt.Sprintf(`Based on the following context, please answer the question. If the context doesn't contain enough information to answer, say so.

Context:
%s

Question: %s

Answer:`, retrieved, query)
}
