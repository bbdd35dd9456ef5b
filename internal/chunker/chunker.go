// Package chunker groups sentences into word-bounded chunks for embedding.
package chunker

import (
	"iter"
	"strings"
)

// DefaultMaxTokens is the default word threshold per chunk.
const DefaultMaxTokens = 120

// Chunk is a run of consecutive sentences and the text that gets embedded.
type Chunk struct {
	Lines []string
	Text  string
}

// WordCount is the whitespace-delimited word count of the chunk text.
func (c Chunk) WordCount() int {
	return len(strings.Fields(c.Text))
}

// Chunker accumulates sentences until the word threshold is reached.
type Chunker struct {
	maxTokens      int
	flushRemainder bool
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxTokens sets the word threshold.
func WithMaxTokens(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithFlushRemainder controls whether a trailing group that never reaches
// the threshold is emitted at end of input. Off by default.
func WithFlushRemainder(flush bool) Option {
	return func(c *Chunker) {
		c.flushRemainder = flush
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{maxTokens: DefaultMaxTokens}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxTokens returns the configured threshold.
func (c *Chunker) MaxTokens() int {
	return c.maxTokens
}

// Chunk consumes sentences lazily and yields a chunk every time the
// accumulated text reaches the threshold. Blank sentences are skipped.
// Unless WithFlushRemainder(true) was given, sentences after the last
// full chunk are not emitted.
func (c *Chunker) Chunk(sentences iter.Seq[string]) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		var (
			buf   strings.Builder
			lines []string
			words int
		)

		for sentence := range sentences {
			sentence = strings.TrimSpace(sentence)
			if sentence == "" {
				continue
			}
			if buf.Len() > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(sentence)
			lines = append(lines, sentence)
			words += len(strings.Fields(sentence))

			if words >= c.maxTokens {
				if !yield(Chunk{Lines: lines, Text: buf.String()}) {
					return
				}
				buf.Reset()
				lines = nil
				words = 0
			}
		}

		if c.flushRemainder && len(lines) > 0 {
			yield(Chunk{Lines: lines, Text: buf.String()})
		}
	}
}

// ChunkAll is Chunk over a slice, collected.
func (c *Chunker) ChunkAll(sentences []string) []Chunk {
	var out []Chunk
	for chunk := range c.Chunk(sliceSeq(sentences)) {
		out = append(out, chunk)
	}
	return out
}

func sliceSeq(s []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, v := range s {
			if !yield(v) {
				return
			}
		}
	}
}
