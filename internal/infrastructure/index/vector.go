package index

import (
	"math"
	"sort"
)

// vectorIndex holds one embedding per chunk and answers exact cosine
// nearest-neighbor queries. Position in the vectors slice is the chunk's
// insertion order, which is also the tie-break order.
type vectorIndex struct {
	vectors [][]float32
	norms   []float64
}

func newVectorIndex(vectors [][]float32) *vectorIndex {
	norms := make([]float64, len(vectors))
	for i, v := range vectors {
		norms[i] = vectorNorm(v)
	}
	return &vectorIndex{vectors: vectors, norms: norms}
}

type scoredChunk struct {
	position int
	score    float64
}

func (idx *vectorIndex) search(query []float32, limit int) []scoredChunk {
	if limit <= 0 || len(idx.vectors) == 0 {
		return nil
	}

	queryNorm := vectorNorm(query)
	if queryNorm == 0 {
		return nil
	}

	scored := make([]scoredChunk, 0, len(idx.vectors))
	for i, v := range idx.vectors {
		if idx.norms[i] == 0 || len(v) != len(query) {
			continue
		}
		var dot float64
		for j := range v {
			dot += float64(v[j]) * float64(query[j])
		}
		scored = append(scored, scoredChunk{
			position: i,
			score:    dot / (idx.norms[i] * queryNorm),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].position < scored[j].position
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
