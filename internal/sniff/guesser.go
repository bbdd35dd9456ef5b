package sniff

import (
	"fmt"
	"mime"
	"net/http"

	"github.com/alecthomas/chroma/v2/lexers"
)

// ContentGuesser reports the mime types a text sample looks like.
type ContentGuesser interface {
	Guess(sample []byte) ([]string, error)
}

// LexerGuesser asks chroma's lexer analysers which language the sample is
// written in, and adds the WHATWG content sniff result. An empty result means
// neither recognised anything.
type LexerGuesser struct{}

var _ ContentGuesser = LexerGuesser{}

// Guess implements ContentGuesser.
func (LexerGuesser) Guess(sample []byte) (mimes []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("content guess failed: %v", r)
		}
	}()

	if lexer := lexers.Analyse(string(sample)); lexer != nil {
		mimes = append(mimes, lexer.Config().MimeTypes...)
	}

	if detected, _, parseErr := mime.ParseMediaType(http.DetectContentType(sample)); parseErr == nil {
		mimes = append(mimes, detected)
	}
	return mimes, nil
}

// GuesserFunc adapts a function to ContentGuesser.
type GuesserFunc func(sample []byte) ([]string, error)

// Guess implements ContentGuesser.
func (f GuesserFunc) Guess(sample []byte) ([]string, error) {
	return f(sample)
}
