package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"docrag/internal/llm"
	"docrag/internal/models"
	"docrag/internal/services/notify"
)

// keywordEmbedder maps text onto two axes: "atlas" and everything else.
type keywordEmbedder struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls = append(e.calls, text)
	if e.err != nil {
		return nil, e.err
	}
	if strings.Contains(strings.ToLower(text), "atlas") {
		return []float32{1, 0}, nil
	}
	return []float32{0, 1}, nil
}

func (e *keywordEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

type fixedSearcher struct {
	hits []models.ChunkHit
	k    int
}

func (s *fixedSearcher) Search(_ context.Context, _ []float32, k int) ([]models.ChunkHit, error) {
	s.k = k
	return s.hits, nil
}

// recordingChat answers contextAnswer when the prompt carries retrieved
// context and answer otherwise.
type recordingChat struct {
	prompts       []string
	opts          llm.CompletionOptions
	calls         int
	answer        string
	contextAnswer string
}

func (c *recordingChat) ChatCompletion(_ context.Context, messages []llm.ChatMessage, opts llm.CompletionOptions) (string, error) {
	c.calls++
	prompt := messages[len(messages)-1].Content
	c.prompts = append(c.prompts, prompt)
	c.opts = opts
	if c.contextAnswer != "" && strings.Contains(prompt, "Context:") {
		return c.contextAnswer, nil
	}
	return c.answer, nil
}

// failingStore fails ReplaceDocument for one document name.
type failingStore struct {
	failOn string
	stored []string
}

func (s *failingStore) ReplaceDocument(_ context.Context, name string, _ map[string]any, _ []models.NewChunk) (*models.Document, error) {
	if name == s.failOn {
		return nil, &models.StatementError{Op: "insert chunks", Document: name, Err: errors.New("connection reset")}
	}
	s.stored = append(s.stored, name)
	return &models.Document{ID: "doc-" + name, DocName: name}, nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingEvents) Publish(ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingEvents) types() []notify.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}
