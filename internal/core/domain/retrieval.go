package domain

// RetrievalSignal names which index surfaced a chunk.
type RetrievalSignal string

const (
	SignalSemantic RetrievalSignal = "semantic"
	SignalLexical  RetrievalSignal = "lexical"
	SignalBoth     RetrievalSignal = "both"
)

type RetrievedChunk struct {
	DocumentID    string          `json:"document_id"`
	Filename      string          `json:"filename"`
	ChunkIndex    int             `json:"chunk_index"`
	Text          string          `json:"text"`
	Score         float64         `json:"score"`
	SemanticScore float64         `json:"-"`
	LexicalScore  float64         `json:"-"`
	Signal        RetrievalSignal `json:"signal,omitempty"`
}

// Key matches Chunk.Key for the same underlying chunk.
func (r RetrievedChunk) Key() string {
	c := Chunk{DocumentID: r.DocumentID, Index: r.ChunkIndex}
	return c.Key()
}

type Answer struct {
	Text        string           `json:"text"`
	Sources     []RetrievedChunk `json:"sources"`
	Suggestions []string         `json:"suggestions,omitempty"`
	Redirected  bool             `json:"redirected"`
}
