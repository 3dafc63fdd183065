// Package document defines the document model shared by all pipeline stages:
// the structured input produced by the ingestion collaborator, the entity and
// relationship types produced by analysis, and the run-scoped State
// accumulator that stages read from and write into.
package document

import (
	"strings"
)

// ContentType is the detected purpose of a document.
type ContentType string

const (
	ContentPolicy        ContentType = "policy"
	ContentConfiguration ContentType = "configuration"
	ContentLog           ContentType = "log"
	ContentReport        ContentType = "report"
	ContentDiagram       ContentType = "diagram"
	ContentTable         ContentType = "table"
	ContentUnknown       ContentType = "unknown"
)

// TableCell is one cell of a table section.
type TableCell struct {
	Row  int    `json:"row"`
	Col  int    `json:"col"`
	Text string `json:"text"`
}

// Section is one structured element of a document: a text block, heading,
// list item, or table. Table sections carry Rows; everything else carries
// Text.
type Section struct {
	Type    string        `json:"type"` // "text", "heading", "list_item", "paragraph", "table", "image"
	Text    string        `json:"text,omitempty"`
	Rows    [][]TableCell `json:"rows,omitempty"`
	Caption string        `json:"caption,omitempty"`
}

// Document is the structured representation handed to the pipeline by the
// ingestion/OCR collaborator. How it is produced from any particular file
// format is outside the pipeline's concern.
type Document struct {
	FileName    string            `json:"file_name"`
	FileHash    string            `json:"file_hash"` // SHA-256 of the original file
	ContentType ContentType       `json:"content_type"`
	PageCount   int               `json:"page_count"`
	Sections    []Section         `json:"sections"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Flatten concatenates all textual content of a document in section order.
// Tables are flattened row-wise, cell by cell, joined with single spaces.
// Flatten is a pure function of the document and may be called repeatedly.
func Flatten(doc *Document) string {
	if doc == nil {
		return ""
	}

	var parts []string
	for _, section := range doc.Sections {
		if section.Type == "table" {
			for _, row := range section.Rows {
				var cells []string
				for _, cell := range row {
					if t := strings.TrimSpace(cell.Text); t != "" {
						cells = append(cells, t)
					}
				}
				if len(cells) > 0 {
					parts = append(parts, strings.Join(cells, " "))
				}
			}
			continue
		}
		if t := strings.TrimSpace(section.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}
