package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/tradewise/trade-data-assistant/internal/core/domain"
	"github.com/tradewise/trade-data-assistant/internal/core/ports"
)

const (
	rerankPassageChars  = 500
	rerankCallTimeout   = 15 * time.Second
	defaultRerankTopK   = 5
	rerankPromptPreface = "You rank text passages by relevance to a question."
)

// Reranker reorders hybrid candidates before prompting. With a completion
// client it asks the model for an index ranking; without one, or whenever
// the call or its parse fails, it falls back to a deterministic heuristic
// over the fused scores. Rerank never fails the answer path.
type Reranker struct {
	completions ports.CompletionClient
	topK        int
	timeout     time.Duration
	logger      *slog.Logger
}

func NewReranker(completions ports.CompletionClient, topK int, logger *slog.Logger) *Reranker {
	if topK <= 0 {
		topK = defaultRerankTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reranker{
		completions: completions,
		topK:        topK,
		timeout:     rerankCallTimeout,
		logger:      logger,
	}
}

func (r *Reranker) Rerank(ctx context.Context, question string, candidates []domain.RetrievedChunk) []domain.RetrievedChunk {
	if len(candidates) == 0 {
		return candidates
	}
	if len(candidates) <= r.topK {
		return candidates
	}

	if r.completions == nil {
		return trimCandidates(rerankHeuristic(question, candidates), r.topK)
	}

	reranked, err := r.rerankWithModel(ctx, question, candidates)
	if err != nil {
		r.logger.Warn("rerank_degraded", "error", err)
		return trimCandidates(rerankHeuristic(question, candidates), r.topK)
	}
	return reranked
}

func (r *Reranker) rerankWithModel(ctx context.Context, question string, candidates []domain.RetrievedChunk) ([]domain.RetrievedChunk, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	response, err := r.completions.Complete(callCtx, buildRerankPrompt(question, candidates, r.topK))
	if err != nil {
		return nil, err
	}

	indices := parseRankedIndices(response, len(candidates))
	if len(indices) == 0 {
		return nil, fmt.Errorf("no usable indices in ranking response %q", response)
	}

	out := make([]domain.RetrievedChunk, 0, r.topK)
	for rank, idx := range indices {
		if len(out) == r.topK {
			break
		}
		chunk := candidates[idx]
		// Position in the model's ranking becomes the score.
		chunk.Score = 1.0 - float64(rank)/float64(len(indices))
		out = append(out, chunk)
	}
	return out, nil
}

func buildRerankPrompt(question string, candidates []domain.RetrievedChunk, topK int) string {
	var b strings.Builder
	b.WriteString(rerankPromptPreface)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nPassages:\n")
	for i, chunk := range candidates {
		text := chunk.Text
		if runes := []rune(text); len(runes) > rerankPassageChars {
			text = string(runes[:rerankPassageChars])
		}
		fmt.Fprintf(&b, "[%d] %s\n\n", i, text)
	}
	fmt.Fprintf(&b, "Return only the indices of the top %d most relevant passages, separated by commas:", topK)
	return b.String()
}

// parseRankedIndices pulls integers out of free-form model output,
// keeping the first occurrence of each in-range index.
func parseRankedIndices(response string, max int) []int {
	var (
		out  []int
		seen = make(map[int]bool, max)
		num  = -1
	)
	flush := func() {
		if num >= 0 && num < max && !seen[num] {
			seen[num] = true
			out = append(out, num)
		}
		num = -1
	}
	for _, r := range response {
		if unicode.IsDigit(r) {
			if num < 0 {
				num = 0
			}
			num = num*10 + int(r-'0')
			continue
		}
		flush()
	}
	flush()
	return out
}

// rerankHeuristic rescores candidates without a model call: normalized
// fused score, token overlap with the question, and a filename hit.
func rerankHeuristic(question string, fused []domain.RetrievedChunk) []domain.RetrievedChunk {
	if len(fused) == 0 {
		return fused
	}

	out := make([]domain.RetrievedChunk, len(fused))
	copy(out, fused)
	queryTokens := toTokenSet(question)

	minScore := out[0].Score
	maxScore := out[0].Score
	for _, chunk := range out[1:] {
		if chunk.Score < minScore {
			minScore = chunk.Score
		}
		if chunk.Score > maxScore {
			maxScore = chunk.Score
		}
	}

	span := maxScore - minScore
	normalize := func(v float64) float64 {
		if span <= 0 {
			if v > 0 {
				return 1
			}
			return 0
		}
		return (v - minScore) / span
	}

	for i := range out {
		normalizedFused := normalize(out[i].Score)
		overlap := tokenOverlap(queryTokens, toTokenSet(out[i].Text))
		filenameBoost := filenameTokenHit(queryTokens, out[i].Filename)
		out[i].Score = 0.60*normalizedFused + 0.30*overlap + 0.10*filenameBoost
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].ChunkIndex < out[j].ChunkIndex
	})

	return out
}
