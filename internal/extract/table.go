package extract

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"
)

// CSVExtractor emits one line per row: the kept cells joined by a space.
type CSVExtractor struct {
	Cells CellFilter
}

var _ Extractor = (*CSVExtractor)(nil)

func (e *CSVExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	result := &Result{}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if line := joinCells(e.Cells, record); line != "" {
			result.Lines = append(result.Lines, line)
		}
	}
	return result, nil
}

// SpreadsheetExtractor reads the first worksheet row by row with the same
// cell rule as CSVExtractor. Rows are streamed, not loaded as a grid.
type SpreadsheetExtractor struct {
	Cells CellFilter
}

var _ Extractor = (*SpreadsheetExtractor)(nil)

func (e *SpreadsheetExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Result{}, nil
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	defer rows.Close()

	result := &Result{}
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cols, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if line := joinCells(e.Cells, cols); line != "" {
			result.Lines = append(result.Lines, line)
		}
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return result, nil
}
