package index

import (
	"math"
	"sort"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

type posting struct {
	position  int
	termCount int
}

// lexicalIndex is a BM25 scorer over the snapshot's chunks. Filename
// tokens are indexed alongside content so a query naming the source file
// scores against it.
type lexicalIndex struct {
	postings  map[string][]posting
	docLength []int
	avgLength float64
}

func newLexicalIndex(texts []string, filenames []string) *lexicalIndex {
	idx := &lexicalIndex{
		postings:  make(map[string][]posting, 1024),
		docLength: make([]int, len(texts)),
	}

	var total int
	for i, text := range texts {
		tokens := Tokenize(text)
		if i < len(filenames) {
			tokens = append(tokens, Tokenize(filenames[i])...)
		}
		idx.docLength[i] = len(tokens)
		total += len(tokens)

		counts := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			counts[tok]++
		}
		for term, n := range counts {
			idx.postings[term] = append(idx.postings[term], posting{position: i, termCount: n})
		}
	}

	if len(texts) > 0 {
		idx.avgLength = float64(total) / float64(len(texts))
	}
	return idx
}

func (idx *lexicalIndex) search(query string, limit int) []scoredChunk {
	if limit <= 0 || len(idx.docLength) == 0 {
		return nil
	}

	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	n := float64(len(idx.docLength))
	accum := make(map[int]float64, 64)
	seen := make(map[string]bool, len(terms))

	for _, term := range terms {
		if seen[term] {
			continue
		}
		seen[term] = true

		postings := idx.postings[term]
		if len(postings) == 0 {
			continue
		}
		df := float64(len(postings))
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))

		for _, p := range postings {
			tf := float64(p.termCount)
			norm := 1 - bm25B + bm25B*float64(idx.docLength[p.position])/idx.avgLength
			accum[p.position] += idf * (tf * (bm25K1 + 1)) / (tf + bm25K1*norm)
		}
	}

	scored := make([]scoredChunk, 0, len(accum))
	for position, score := range accum {
		scored = append(scored, scoredChunk{position: position, score: score})
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
