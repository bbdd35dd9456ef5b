package extract

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor returns the plain text of every page.
type PDFExtractor struct{}

var _ Extractor = (*PDFExtractor)(nil)

func (e *PDFExtractor) Extract(ctx context.Context, path string) (result *Result, err error) {
	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("failed to parse pdf: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf text: %w", err)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, text); err != nil {
		return nil, fmt.Errorf("failed to read pdf text: %w", err)
	}
	return &Result{Lines: splitLines(sb.String())}, nil
}
