// Package extract turns a supported file into raw text lines.
//
// Each file type has one Extractor. The Registry maps type tags to
// extractors and is filled once at construction.
package extract

import (
	"context"
	"fmt"
	"strings"

	"docrag/internal/models"
)

// Result is the raw text of one file.
// Ignore carries document-specific lines (an HTML title, for example) that
// should be dropped during normalisation of this document only.
type Result struct {
	Lines  []string
	Ignore []string
}

// Extractor reads one file type.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Result, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, path string) (*Result, error)

// Extract implements Extractor.
func (f ExtractorFunc) Extract(ctx context.Context, path string) (*Result, error) {
	return f(ctx, path)
}

// CellFilter decides whether a table cell carries content.
// normalize.Normalizer satisfies it.
type CellFilter interface {
	Keep(line string, extraIgnore ...string) bool
}

// Registry dispatches on file type.
type Registry struct {
	extractors map[models.FileType]Extractor
}

// NewRegistry registers an extractor for every supported type.
// cells filters CSV and spreadsheet cells; nil keeps every non-blank cell.
func NewRegistry(cells CellFilter) *Registry {
	if cells == nil {
		cells = nonBlank{}
	}
	r := &Registry{extractors: make(map[models.FileType]Extractor)}
	r.Register(models.FileTypeHTML, &HTMLExtractor{})
	r.Register(models.FileTypeText, &TextExtractor{})
	r.Register(models.FileTypePDF, &PDFExtractor{})
	r.Register(models.FileTypeCSV, &CSVExtractor{Cells: cells})
	r.Register(models.FileTypeSpreadsheet, &SpreadsheetExtractor{Cells: cells})
	r.Register(models.FileTypeWord, &WordExtractor{})
	return r
}

// Register adds or replaces the extractor for t.
func (r *Registry) Register(t models.FileType, e Extractor) {
	r.extractors[t] = e
}

// Lookup returns the extractor for t or ErrUnsupportedFormat.
func (r *Registry) Lookup(t models.FileType) (Extractor, error) {
	e, ok := r.extractors[t]
	if !ok {
		return nil, fmt.Errorf("no extractor for %q: %w", t, models.ErrUnsupportedFormat)
	}
	return e, nil
}

// Extract runs the extractor registered for t. Extractor failures come back
// as *models.ExtractionError naming the file.
func (r *Registry) Extract(ctx context.Context, t models.FileType, path string) (*Result, error) {
	e, err := r.Lookup(t)
	if err != nil {
		return nil, err
	}

	result, err := e.Extract(ctx, path)
	if err != nil {
		return nil, &models.ExtractionError{Path: path, Type: t, Err: err}
	}
	return result, nil
}

type nonBlank struct{}

func (nonBlank) Keep(line string, _ ...string) bool {
	return strings.TrimSpace(line) != ""
}

// joinCells keeps the cells that pass the filter and joins them with one space.
func joinCells(cells CellFilter, row []string) string {
	kept := make([]string, 0, len(row))
	for _, cell := range row {
		if cells.Keep(cell) {
			kept = append(kept, strings.TrimSpace(cell))
		}
	}
	return strings.Join(kept, " ")
}

// splitLines splits text on newlines, dropping carriage returns.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}
