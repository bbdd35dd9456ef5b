package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	wordBodyEntry = "word/document.xml"
)

// WordExtractor streams word/document.xml token by token. Each paragraph
// becomes one line ending in a space. Superscript runs (footnote markers)
// are skipped.
type WordExtractor struct{}

var _ Extractor = (*WordExtractor)(nil)

func (e *WordExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document archive: %w", err)
	}
	defer archive.Close()

	body, err := archive.Open(wordBodyEntry)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", wordBodyEntry, err)
	}
	defer body.Close()

	lines, err := readParagraphs(ctx, body)
	if err != nil {
		return nil, err
	}
	return &Result{Lines: lines}, nil
}

func readParagraphs(ctx context.Context, r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		lines       []string
		paragraph   strings.Builder
		inRun       bool
		superscript bool
		inText      bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", wordBodyEntry, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "r":
				inRun, superscript = true, false
			case "vertAlign":
				if inRun && attrValue(t, "val") == "superscript" {
					superscript = true
				}
			case "t":
				inText = inRun && !superscript
			}

		case xml.EndElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "r":
				inRun, superscript = false, false
			case "p":
				paragraph.WriteByte(' ')
				lines = append(lines, paragraph.String())
				paragraph.Reset()
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}

		case xml.CharData:
			if inText {
				paragraph.Write(t)
			}
		}
	}

	if paragraph.Len() > 0 {
		lines = append(lines, paragraph.String())
	}
	return lines, nil
}

func attrValue(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
