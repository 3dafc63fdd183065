package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlatten(t *testing.T) {
	tests := []struct {
		name string
		doc  *Document
		want string
	}{
		{
			name: "nil document",
			doc:  nil,
			want: "",
		},
		{
			name: "text sections in order",
			doc: &Document{Sections: []Section{
				{Type: "heading", Text: "Visitor Log"},
				{Type: "paragraph", Text: "Entries for March."},
			}},
			want: "Visitor Log\nEntries for March.",
		},
		{
			name: "table flattened row-wise cell by cell",
			doc: &Document{Sections: []Section{
				{Type: "table", Rows: [][]TableCell{
					{{Row: 0, Col: 0, Text: "Name"}, {Row: 0, Col: 1, Text: "Badge"}},
					{{Row: 1, Col: 0, Text: "Jane Doe"}, {Row: 1, Col: 1, Text: "B-1041"}},
				}},
			}},
			want: "Name Badge\nJane Doe B-1041",
		},
		{
			name: "blank cells and sections skipped",
			doc: &Document{Sections: []Section{
				{Type: "text", Text: "  "},
				{Type: "table", Rows: [][]TableCell{
					{{Text: ""}, {Text: "10.0.0.1"}},
					{{Text: "   "}},
				}},
				{Type: "text", Text: "end"},
			}},
			want: "10.0.0.1\nend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Flatten(tt.doc)
			assert.Equal(t, tt.want, got)
			// Idempotence: flattening again yields the identical string.
			assert.Equal(t, got, Flatten(tt.doc))
		})
	}
}

