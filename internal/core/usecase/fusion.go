package usecase

import (
	"fmt"
	"sort"

	"github.com/tradewise/trade-data-assistant/internal/core/domain"
)

// fuseWeighted merges semantic and lexical candidate lists into one
// ranking. Each list's scores are min-max normalized to [0,1] so the two
// scales are comparable, then combined as a weighted sum; a chunk missing
// from one list contributes zero for that signal. Sorting is fully
// deterministic: hybrid score desc, lexical score desc, document id,
// chunk index.
func fuseWeighted(semantic, lexical []domain.RetrievedChunk, semanticWeight, lexicalWeight float64) []domain.RetrievedChunk {
	if semanticWeight <= 0 && lexicalWeight <= 0 {
		semanticWeight, lexicalWeight = 0.6, 0.4
	}

	semNorm := normalizeScores(semantic)
	lexNorm := normalizeScores(lexical)

	acc := make(map[string]domain.RetrievedChunk, len(semantic)+len(lexical))

	for i, chunk := range semantic {
		key := retrievalChunkKey(chunk)
		merged := preferRicherChunk(acc[key], chunk)
		merged.SemanticScore = semNorm[i]
		merged.Signal = domain.SignalSemantic
		acc[key] = merged
	}
	for i, chunk := range lexical {
		key := retrievalChunkKey(chunk)
		merged, seen := acc[key]
		merged = preferRicherChunk(merged, chunk)
		merged.LexicalScore = lexNorm[i]
		if seen {
			merged.Signal = domain.SignalBoth
		} else {
			merged.Signal = domain.SignalLexical
		}
		acc[key] = merged
	}

	out := make([]domain.RetrievedChunk, 0, len(acc))
	for _, chunk := range acc {
		chunk.Score = semanticWeight*chunk.SemanticScore + lexicalWeight*chunk.LexicalScore
		out = append(out, chunk)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].LexicalScore != out[j].LexicalScore {
			return out[i].LexicalScore > out[j].LexicalScore
		}
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].ChunkIndex < out[j].ChunkIndex
	})

	return out
}

// normalizeScores maps a ranked list's scores onto [0,1]. A single
// candidate, or a list where every score is equal, normalizes to 1.
func normalizeScores(chunks []domain.RetrievedChunk) []float64 {
	if len(chunks) == 0 {
		return nil
	}

	minScore := chunks[0].Score
	maxScore := chunks[0].Score
	for _, chunk := range chunks[1:] {
		if chunk.Score < minScore {
			minScore = chunk.Score
		}
		if chunk.Score > maxScore {
			maxScore = chunk.Score
		}
	}

	out := make([]float64, len(chunks))
	span := maxScore - minScore
	for i, chunk := range chunks {
		if span <= 0 {
			out[i] = 1
			continue
		}
		out[i] = (chunk.Score - minScore) / span
	}
	return out
}

func trimCandidates(chunks []domain.RetrievedChunk, limit int) []domain.RetrievedChunk {
	if limit <= 0 || len(chunks) <= limit {
		return chunks
	}
	return chunks[:limit]
}

func retrievalChunkKey(chunk domain.RetrievedChunk) string {
	if chunk.DocumentID != "" && chunk.ChunkIndex >= 0 {
		return fmt.Sprintf("%s:%d", chunk.DocumentID, chunk.ChunkIndex)
	}
	return fmt.Sprintf("%s|%s|%s", chunk.DocumentID, chunk.Filename, chunk.Text)
}

func preferRicherChunk(current, candidate domain.RetrievedChunk) domain.RetrievedChunk {
	if current.DocumentID == "" && current.Filename == "" && current.Text == "" {
		return candidate
	}
	if current.Text == "" && candidate.Text != "" {
		current.Text = candidate.Text
	}
	if current.Filename == "" && candidate.Filename != "" {
		current.Filename = candidate.Filename
	}
	if current.DocumentID == "" && candidate.DocumentID != "" {
		current.DocumentID = candidate.DocumentID
	}
	if current.ChunkIndex < 0 && candidate.ChunkIndex >= 0 {
		current.ChunkIndex = candidate.ChunkIndex
	}
	return current
}
