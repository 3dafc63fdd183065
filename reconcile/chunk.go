// Package reconcile splits long document text into overlapping analysis
// windows and folds the entities found per window back into one consistent,
// deduplicated set with absolute document offsets.
package reconcile

// Chunk is one bounded window of the full document text. Offset is the
// absolute index of the window's first character in the full text, counted
// in code points.
type Chunk struct {
	Index  int
	Offset int
	Text   string
}

// Split windows text into chunks of at most size characters where window i
// starts at i*(size-overlap). Overlap regions are covered by two adjacent
// windows by design, so an entity spanning a window boundary is still fully
// contained in at least one window. Text no longer than size yields a single
// chunk.
//
// Size, overlap and offsets count Unicode code points, matching the
// character indices the inference collaborator reports, and a window never
// splits a multi-byte rune.
//
// Callers must ensure 0 <= overlap < size (enforced by config validation).
func Split(text string, size, overlap int) []Chunk {
	runes := []rune(text)
	if len(runes) <= size {
		return []Chunk{{Index: 0, Offset: 0, Text: text}}
	}

	stride := size - overlap
	var chunks []Chunk
	for start, i := 0, 0; start < len(runes); start, i = start+stride, i+1 {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{Index: i, Offset: start, Text: string(runes[start:end])})
	}
	return chunks
}

// AbsoluteOffset converts a window-relative position in chunk i to its
// absolute document position.
func AbsoluteOffset(chunkIndex, relative, size, overlap int) int {
	return chunkIndex*(size-overlap) + relative
}
