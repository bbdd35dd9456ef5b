package extract

import (
	"bufio"
	"context"
	"fmt"
	"os"
)

// MaxLineSize bounds a single line of a text file.
const MaxLineSize = 1 << 20

// TextExtractor returns the file's lines verbatim.
type TextExtractor struct{}

var _ Extractor = (*TextExtractor)(nil)

func (e *TextExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open text: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

	result := &Result{}
	for scanner.Scan() {
		result.Lines = append(result.Lines, scanner.Text())
		if len(result.Lines)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read text: %w", err)
	}
	return result, nil
}
