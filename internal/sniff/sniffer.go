// Package sniff classifies files that arrive without a usable extension.
package sniff

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"docrag/internal/models"
)

// SampleSize is how many leading bytes are inspected.
const SampleSize = 20

var (
	// officeSignature is the zip local-file header written by word processors
	// and spreadsheet tools: PK\x03\x04, version 2.0, flags 0x0006.
	officeSignature = []byte{0x50, 0x4b, 0x03, 0x04, 0x14, 0x00, 0x06, 0x00}
	pdfSignature    = []byte("%PDF")
)

const (
	wordBodyEntry = "word/document.xml"
	workbookEntry = "xl/workbook.xml"
)

// Sniffer looks at a file's leading bytes and decides its type.
type Sniffer struct {
	guesser ContentGuesser
}

// Option configures a Sniffer.
type Option func(*Sniffer)

// WithGuesser replaces the lexical content guesser.
func WithGuesser(g ContentGuesser) Option {
	return func(s *Sniffer) {
		s.guesser = g
	}
}

// New creates a Sniffer backed by LexerGuesser unless overridden.
func New(opts ...Option) *Sniffer {
	s := &Sniffer{guesser: LexerGuesser{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sniff returns doc, xls, pdf, htm or txt.
//
// Files with the office zip signature are opened as archives: a readable
// document body means doc, a readable workbook means xls, neither means
// ErrUnknownFormat. Any other archive failure is ErrCorruptArchive.
// A sample that is not UTF-8 is ErrUnknownFormat.
func (s *Sniffer) Sniff(path string) (models.FileType, error) {
	sample, err := readSample(path)
	if err != nil {
		return "", err
	}

	switch {
	case bytes.HasPrefix(sample, officeSignature):
		return sniffOffice(path)
	case bytes.HasPrefix(sample, pdfSignature):
		return models.FileTypePDF, nil
	}

	if !validUTF8Prefix(sample) {
		return "", fmt.Errorf("%s: binary content: %w", path, models.ErrUnknownFormat)
	}

	mimes, err := s.guesser.Guess(sample)
	if err != nil {
		return "", fmt.Errorf("failed to guess content type of %s: %w", path, err)
	}
	for _, m := range mimes {
		mediaType, _, _ := strings.Cut(m, ";")
		if strings.EqualFold(strings.TrimSpace(mediaType), "text/html") {
			return models.FileTypeHTML, nil
		}
	}
	return models.FileTypeText, nil
}

func readSample(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, SampleSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return buf[:n], nil
}

func sniffOffice(path string) (models.FileType, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", path, models.ErrCorruptArchive, err)
	}
	defer archive.Close()

	err = readEntry(archive, wordBodyEntry)
	if err == nil {
		return models.FileTypeWord, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w: %v", path, models.ErrCorruptArchive, err)
	}

	err = readEntry(archive, workbookEntry)
	if err == nil {
		return models.FileTypeSpreadsheet, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w: %v", path, models.ErrCorruptArchive, err)
	}

	return "", fmt.Errorf("%s: office archive without document or workbook: %w", path, models.ErrUnknownFormat)
}

func readEntry(archive *zip.ReadCloser, name string) error {
	entry, err := archive.Open(name)
	if err != nil {
		return err
	}
	defer entry.Close()

	_, err = io.Copy(io.Discard, entry)
	return err
}

// validUTF8Prefix accepts a sample whose only defect is a multi-byte rune
// cut off by the sample boundary.
func validUTF8Prefix(sample []byte) bool {
	if utf8.Valid(sample) {
		return true
	}
	for i := len(sample) - 1; i >= 0 && i >= len(sample)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(sample[i]) {
			continue
		}
		tail := sample[i:]
		return !utf8.FullRune(tail) && utf8.Valid(sample[:i])
	}
	return false
}
