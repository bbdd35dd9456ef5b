package models

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/segmentio/ksuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FileType is the short tag used to pick an extractor.
type FileType string

const (
	FileTypeWord        FileType = "doc"
	FileTypeSpreadsheet FileType = "xls"
	FileTypePDF         FileType = "pdf"
	FileTypeCSV         FileType = "csv"
	FileTypeHTML        FileType = "htm"
	FileTypeText        FileType = "txt"
)

// SupportedFileTypes lists every type the extractor registry handles.
var SupportedFileTypes = []FileType{
	FileTypeWord,
	FileTypePDF,
	FileTypeSpreadsheet,
	FileTypeCSV,
	FileTypeHTML,
	FileTypeText,
}

// IsSupported reports whether t has an extractor.
func (t FileType) IsSupported() bool {
	for _, s := range SupportedFileTypes {
		if s == t {
			return true
		}
	}
	return false
}

// TypeFromName derives a FileType from a file name extension.
// The extension is lower-cased and cut to three characters so that
// docx, xlsx and html collapse onto doc, xls and htm.
// ok is false when the name has no extension and must be sniffed.
func TypeFromName(name string) (FileType, bool) {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return "", false
	}
	ext = strings.ToLower(ext)
	if len(ext) > 3 {
		ext = ext[:3]
	}
	return FileType(ext), true
}

/*
LEARNING: DOCUMENT IDENTITY

A document is identified by its NAME, not by its id. Reprocessing the same
file name keeps the row (and its id) but throws away every chunk and refreshes
CreatedAt. That makes a re-run of a halted batch idempotent: the same input
always ends in the same chunk set.
*/

// Document is one ingested source file.
type Document struct {
	ID       string            `json:"id" gorm:"type:char(27);primaryKey"`
	DocName  string            `json:"doc_name" gorm:"column:doc_name;type:text;not null;uniqueIndex"`
	Metadata datatypes.JSONMap `json:"metadata" gorm:"type:jsonb;default:'{}'"`
	// CreatedAt is refreshed every time the document is reprocessed.
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`

	Chunks []DocumentChunk `json:"chunks,omitempty" gorm:"foreignKey:DocID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate hook generates KSUID before inserting
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = ksuid.New().String()
	}
	return nil
}

// TableName override
func (Document) TableName() string {
	return "documents"
}

// DocumentSummary is the list view of a document.
type DocumentSummary struct {
	ID         string    `json:"id"`
	DocName    string    `json:"doc_name"`
	CreatedAt  time.Time `json:"created_at"`
	ChunkCount int       `json:"chunk_count"`
}
