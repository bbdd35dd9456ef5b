package extract

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"docrag/internal/models"
)

var numericCell = regexp.MustCompile(`^[0-9\. ]*$`)

// contentCells drops blank and numeric-only cells.
type contentCells struct{}

func (contentCells) Keep(line string, _ ...string) bool {
	line = strings.TrimSpace(line)
	return line != "" && !numericCell.MatchString(line)
}

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeDocx(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guide.docx")
	f, err := os.Create(path)
	require.NoError(t, err)

	w := zip.NewWriter(f)
	entry, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = entry.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

func TestRegistry_Unsupported(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Extract(context.Background(), models.FileType("ppt"), "deck.ppt")
	assert.ErrorIs(t, err, models.ErrUnsupportedFormat)
	assert.NotErrorIs(t, err, models.ErrExtraction)
}

func TestRegistry_EverySupportedTypeRegistered(t *testing.T) {
	r := NewRegistry(nil)
	for _, ft := range models.SupportedFileTypes {
		_, err := r.Lookup(ft)
		assert.NoError(t, err, "type %s", ft)
	}
}

func TestRegistry_WrapsExtractorErrors(t *testing.T) {
	r := NewRegistry(nil)
	path := filepath.Join(t.TempDir(), "missing.txt")

	_, err := r.Extract(context.Background(), models.FileTypeText, path)

	require.ErrorIs(t, err, models.ErrExtraction)
	var extractErr *models.ExtractionError
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, path, extractErr.Path)
	assert.Equal(t, models.FileTypeText, extractErr.Type)
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry(nil)
	r.Register("md", ExtractorFunc(func(context.Context, string) (*Result, error) {
		return &Result{Lines: []string{"# heading"}}, nil
	}))

	res, err := r.Extract(context.Background(), "md", "notes.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"# heading"}, res.Lines)
}

func TestCSVExtractor(t *testing.T) {
	path := writeFixture(t, "assets.csv", "Name,,Atlas\n42,Hooks,\n,,\n\"quoted \"\"cell\"\"\",x\n")

	res, err := (&CSVExtractor{Cells: contentCells{}}).Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Name Atlas", "Hooks", `quoted "cell" x`}, res.Lines)
}

func TestCSVExtractor_RaggedRowsAndLazyQuotes(t *testing.T) {
	path := writeFixture(t, "ragged.csv", "a,b,c\nd\ne,f \"g\"\n")

	res, err := (&CSVExtractor{Cells: nonBlank{}}).Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"a b c", "d", `e f "g"`}, res.Lines)
}

func TestSpreadsheetExtractor_FirstSheetOnly(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Name", "", "Atlas"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"42", "Hooks"}))
	_, err := f.NewSheet("Other")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Other", "A1", "hidden"))

	path := filepath.Join(t.TempDir(), "assets.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	res, err := (&SpreadsheetExtractor{Cells: contentCells{}}).Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Name Atlas", "Hooks"}, res.Lines)
}

func TestWordExtractor(t *testing.T) {
	path := writeDocx(t,
		`<w:p><w:r><w:t>Atlas stores metadata</w:t></w:r>`+
			`<w:r><w:rPr><w:vertAlign w:val="superscript"/></w:rPr><w:t>1</w:t></w:r>`+
			`<w:r><w:t xml:space="preserve">.</w:t></w:r></w:p>`+
			`<w:p><w:r><w:rPr><w:vertAlign w:val="subscript"/></w:rPr><w:t>H2O</w:t></w:r>`+
			`<w:r><w:t> is water.</w:t></w:r></w:p>`)

	res, err := (&WordExtractor{}).Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Atlas stores metadata. ", "H2O is water. "}, res.Lines)
}

func TestWordExtractor_MissingBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	_, err = w.Create("xl/workbook.xml")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	_, err = NewRegistry(nil).Extract(context.Background(), models.FileTypeWord, path)
	assert.ErrorIs(t, err, models.ErrExtraction)
}

func TestHTMLExtractor(t *testing.T) {
	path := writeFixture(t, "page.html", `<html><head><title> Atlas Guide </title><style>p { color: red }</style></head>
<body>
<h1>Atlas Guide</h1>
<script>var secret = 1;</script>
<p>Atlas stores <b>metadata</b>.</p>
<noscript>Enable scripts</noscript>
</body></html>`)

	res, err := (&HTMLExtractor{}).Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Atlas Guide"}, res.Ignore)

	text := strings.Join(res.Lines, " ")
	assert.Contains(t, res.Lines, "Atlas stores metadata.")
	assert.NotContains(t, text, "secret")
	assert.NotContains(t, text, "color")
	assert.NotContains(t, text, "Enable scripts")
	assert.Contains(t, res.Lines, "Atlas Guide")
}

func TestHTMLExtractor_InlineTagsKeepWordsWhole(t *testing.T) {
	path := writeFixture(t, "inline.html",
		`<p>H<sub>2</sub>O is water, see <a href="/docs">docs</a>. Foot<sup>1</sup> and <b>Note</b>: done</p>`)

	res, err := (&HTMLExtractor{}).Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"H2O is water, see docs. Foot1 and Note: done"}, res.Lines)
	assert.Empty(t, res.Ignore)
}

func TestTextExtractor(t *testing.T) {
	path := writeFixture(t, "notes.txt", "first line\r\n\nthird line\n")

	res, err := (&TextExtractor{}).Extract(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, res.Lines, 3)
	assert.Equal(t, "first line", strings.TrimSpace(res.Lines[0]))
	assert.Equal(t, "", res.Lines[1])
	assert.Equal(t, "third line", res.Lines[2])
}

func TestPDFExtractor_Corrupt(t *testing.T) {
	path := writeFixture(t, "broken.pdf", "%PDF-1.4\nthis is not really a pdf")

	_, err := NewRegistry(nil).Extract(context.Background(), models.FileTypePDF, path)
	assert.ErrorIs(t, err, models.ErrExtraction)
}

func TestExtract_CancelledContext(t *testing.T) {
	path := writeFixture(t, "assets.csv", "a,b\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&CSVExtractor{Cells: nonBlank{}}).Extract(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}
