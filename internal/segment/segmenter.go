// Package segment splits cleaned text into sentences.
package segment

import (
	"fmt"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// NoiseFilter reports lines that carry no content (page numbers and the like).
type NoiseFilter interface {
	IsNoise(s string) bool
}

// Segmenter wraps an English Punkt sentence tokenizer.
type Segmenter struct {
	tokenizer *sentences.DefaultSentenceTokenizer
	noise     NoiseFilter
}

// New loads the English training data. noise may be nil.
func New(noise NoiseFilter) (*Segmenter, error) {
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load sentence tokenizer: %w", err)
	}
	return &Segmenter{tokenizer: tokenizer, noise: noise}, nil
}

// Split returns trimmed sentences, skipping empty and noise-only ones.
func (s *Segmenter) Split(text string) []string {
	var out []string
	for _, sent := range s.tokenizer.Tokenize(text) {
		line := strings.TrimSpace(sent.Text)
		if line == "" {
			continue
		}
		if s.noise != nil && s.noise.IsNoise(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}
