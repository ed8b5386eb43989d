package domain

import (
	"fmt"
	"time"
)

// Document is one file from the corpus directory. Identity is the source
// filename: re-ingesting the corpus replaces documents wholesale.
type Document struct {
	ID         string          `json:"id"`
	Filename   string          `json:"filename"`
	Text       string          `json:"-"`
	Images     []DocumentImage `json:"-"`
	IngestedAt time.Time       `json:"ingested_at"`
}

// DocumentImage is one image embedded in a corpus document. The payload
// is opaque; Position is the extraction order within the document, so the
// ordering survives persistence and restore.
type DocumentImage struct {
	DocumentID string `json:"document_id"`
	Position   int    `json:"position"`
	Page       int    `json:"page,omitempty"`
	Format     string `json:"format,omitempty"`
	Data       []byte `json:"-"`
}

// Chunk is a contiguous slice of a document's text. Offsets are rune
// positions into the extracted text so citations can point back at the
// source.
type Chunk struct {
	DocumentID  string `json:"document_id"`
	Filename    string `json:"filename"`
	Index       int    `json:"index"`
	Text        string `json:"text"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

// Key identifies a chunk across indexes and session history.
func (c Chunk) Key() string {
	return fmt.Sprintf("%s:%d", c.DocumentID, c.Index)
}

// FailedDocument records a corpus file that could not be ingested.
type FailedDocument struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// IngestionReport summarizes one rebuild run.
type IngestionReport struct {
	Documents   int              `json:"documents"`
	Chunks      int              `json:"chunks"`
	Images      int              `json:"images"`
	Failed      []FailedDocument `json:"failed,omitempty"`
	CompletedAt time.Time        `json:"completed_at"`
}

// IndexStats is the read model served by the health endpoint.
type IndexStats struct {
	Ready       bool      `json:"ready"`
	Documents   int       `json:"documents"`
	Chunks      int       `json:"chunks"`
	LastRebuild time.Time `json:"last_rebuild,omitempty"`
}
