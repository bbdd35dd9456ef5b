package models

import (
	"errors"
	"fmt"
)

// Pipeline errors. Per-file errors (format, extraction) are skipped by the
// batch; store and dimension errors stop it.
var (
	// ErrUnknownFormat means sniffing could not classify the file.
	ErrUnknownFormat = errors.New("unknown file format")

	// ErrUnsupportedFormat means the type was resolved but no extractor handles it.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrCorruptArchive means a file carrying the office zip signature could not be read as a zip.
	ErrCorruptArchive = errors.New("corrupt archive")

	// ErrExtraction marks every ExtractionError.
	ErrExtraction = errors.New("text extraction failed")

	// ErrEmbeddingDimensionMismatch means the model and the store disagree on vector width.
	ErrEmbeddingDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrZeroVector means a model returned a vector that cannot be L2-normalised.
	ErrZeroVector = errors.New("zero-length embedding vector")

	// ErrStoreConnection means the store stayed unreachable after every retry.
	ErrStoreConnection = errors.New("store connection failed")

	// ErrStoreStatement marks every StatementError.
	ErrStoreStatement = errors.New("store statement failed")

	// ErrNotFound is returned by store lookups.
	ErrNotFound = errors.New("not found")
)

// ExtractionError names the file that could not be turned into text.
type ExtractionError struct {
	Path string
	Type FileType
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s (%s): %v", e.Path, e.Type, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrExtraction) match any ExtractionError.
func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

// StatementError is a failed statement inside a document transaction.
// The transaction has already been rolled back when this is returned.
type StatementError struct {
	Op       string
	Document string
	Values   []any
	Err      error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("%s for document %q: %v", e.Op, e.Document, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStoreStatement) match any StatementError.
func (e *StatementError) Is(target error) bool { return target == ErrStoreStatement }
