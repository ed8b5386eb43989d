package index

import (
	"time"

	"github.com/tradewise/trade-data-assistant/internal/core/domain"
)

// Snapshot is one immutable build of the corpus indexes. All fields are
// set at construction and never mutated, so concurrent readers need no
// locking.
type Snapshot struct {
	chunks  []domain.Chunk
	vector  *vectorIndex
	lexical *lexicalIndex
	profile *domain.TopicProfile
	builtAt time.Time

	documents int
}

func NewSnapshot(chunks []domain.Chunk, vectors [][]float32, profile *domain.TopicProfile, builtAt time.Time) *Snapshot {
	texts := make([]string, len(chunks))
	filenames := make([]string, len(chunks))
	docs := make(map[string]struct{}, 16)
	for i, c := range chunks {
		texts[i] = c.Text
		filenames[i] = c.Filename
		docs[c.DocumentID] = struct{}{}
	}

	return &Snapshot{
		chunks:    chunks,
		vector:    newVectorIndex(vectors),
		lexical:   newLexicalIndex(texts, filenames),
		profile:   profile,
		builtAt:   builtAt,
		documents: len(docs),
	}
}

func (s *Snapshot) semantic(queryVector []float32, limit int) []domain.RetrievedChunk {
	return s.collect(s.vector.search(queryVector, limit), domain.SignalSemantic)
}

func (s *Snapshot) lexicalSearch(query string, limit int) []domain.RetrievedChunk {
	return s.collect(s.lexical.search(query, limit), domain.SignalLexical)
}

func (s *Snapshot) collect(scored []scoredChunk, signal domain.RetrievalSignal) []domain.RetrievedChunk {
	out := make([]domain.RetrievedChunk, 0, len(scored))
	for _, sc := range scored {
		c := s.chunks[sc.position]
		retrieved := domain.RetrievedChunk{
			DocumentID: c.DocumentID,
			Filename:   c.Filename,
			ChunkIndex: c.Index,
			Text:       c.Text,
			Score:      sc.score,
			Signal:     signal,
		}
		switch signal {
		case domain.SignalSemantic:
			retrieved.SemanticScore = sc.score
		case domain.SignalLexical:
			retrieved.LexicalScore = sc.score
		}
		out = append(out, retrieved)
	}
	return out
}

func (s *Snapshot) stats() domain.IndexStats {
	return domain.IndexStats{
		Ready:       true,
		Documents:   s.documents,
		Chunks:      len(s.chunks),
		LastRebuild: s.builtAt,
	}
}
