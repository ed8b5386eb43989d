package chunking

import (
	"strings"

	"github.com/tradewise/trade-data-assistant/internal/core/domain"
)

// Splitter cuts document text into overlapping chunks. Cut points prefer
// sentence or paragraph boundaries near the size limit and fall back to a
// hard cut when none is found. Splitting the same text twice yields
// identical chunks.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil || strings.TrimSpace(doc.Text) == "" {
		filename := ""
		if doc != nil {
			filename = doc.Filename
		}
		return nil, domain.WrapError(domain.ErrMalformedDocument, "chunking.split",
			&emptyTextError{filename: filename})
	}

	runes := []rune(doc.Text)
	out := make([]domain.Chunk, 0, len(runes)/s.ChunkSize+1)

	start := 0
	for start < len(runes) {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.adjustToBoundary(runes, start, end)
		}

		out = append(out, domain.Chunk{
			DocumentID:  doc.ID,
			Filename:    doc.Filename,
			Index:       len(out),
			Text:        string(runes[start:end]),
			StartOffset: start,
			EndOffset:   end,
		})

		if end == len(runes) {
			break
		}
		next := end - s.Overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return out, nil
}

// adjustToBoundary pulls the cut back to just after the last sentence or
// paragraph terminator in the second half of the window. Hard cut when the
// window has none.
func (s *Splitter) adjustToBoundary(runes []rune, start, end int) int {
	limit := start + s.ChunkSize/2
	for i := end - 1; i > limit; i-- {
		switch runes[i] {
		case '.', '!', '?', '\n':
			return i + 1
		}
	}
	return end
}

type emptyTextError struct {
	filename string
}

func (e *emptyTextError) Error() string {
	return "document " + e.filename + " has no extractable text"
}
