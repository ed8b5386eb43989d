package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/tradewise/trade-data-assistant/internal/core/domain"
)

type completionFake struct {
	response string
	err      error
	prompts  []string
}

func (f *completionFake) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func rerankFixture() []domain.RetrievedChunk {
	return []domain.RetrievedChunk{
		{DocumentID: "a.txt", Filename: "a.txt", ChunkIndex: 0, Text: "quota rules", Score: 0.9},
		{DocumentID: "b.txt", Filename: "b.txt", ChunkIndex: 0, Text: "tariff rates", Score: 0.8},
		{DocumentID: "c.txt", Filename: "c.txt", ChunkIndex: 0, Text: "origin criteria", Score: 0.7},
	}
}

func TestRerankUsesModelOrdering(t *testing.T) {
	completions := &completionFake{response: "2, 0"}
	reranker := NewReranker(completions, 2, nil)

	got := reranker.Rerank(context.Background(), "what are the origin criteria?", rerankFixture())
	if len(got) != 2 {
		t.Fatalf("expected top 2, got %d", len(got))
	}
	if got[0].Key() != "c.txt:0" || got[1].Key() != "a.txt:0" {
		t.Fatalf("model ordering not applied: %s, %s", got[0].Key(), got[1].Key())
	}
	if got[0].Score <= got[1].Score {
		t.Fatalf("rank scores not descending: %v, %v", got[0].Score, got[1].Score)
	}
	if len(completions.prompts) != 1 {
		t.Fatalf("expected one completion call, got %d", len(completions.prompts))
	}
}

func TestRerankDegradesOnCompletionFailure(t *testing.T) {
	completions := &completionFake{err: errors.New("upstream down")}
	reranker := NewReranker(completions, 2, nil)

	got := reranker.Rerank(context.Background(), "quota rules", rerankFixture())
	if len(got) != 2 {
		t.Fatalf("expected top 2 from heuristic fallback, got %d", len(got))
	}
	// Heuristic favors the candidate overlapping the question.
	if got[0].Key() != "a.txt:0" {
		t.Fatalf("expected overlap winner first, got %s", got[0].Key())
	}
}

func TestRerankDegradesOnUnparsableResponse(t *testing.T) {
	completions := &completionFake{response: "I cannot rank these passages."}
	reranker := NewReranker(completions, 2, nil)

	got := reranker.Rerank(context.Background(), "tariff rates", rerankFixture())
	if len(got) != 2 {
		t.Fatalf("expected heuristic fallback, got %d results", len(got))
	}
}

func TestRerankSkipsModelForSmallCandidateSets(t *testing.T) {
	completions := &completionFake{response: "0"}
	reranker := NewReranker(completions, 5, nil)

	input := rerankFixture()
	got := reranker.Rerank(context.Background(), "anything", input)
	if len(got) != len(input) {
		t.Fatalf("expected passthrough, got %d", len(got))
	}
	if len(completions.prompts) != 0 {
		t.Fatalf("model must not be called when candidates fit top-k")
	}
}

func TestRerankWithoutModelUsesHeuristic(t *testing.T) {
	reranker := NewReranker(nil, 1, nil)

	// Equal fused scores: token overlap with the question decides.
	candidates := rerankFixture()
	for i := range candidates {
		candidates[i].Score = 0.5
	}

	got := reranker.Rerank(context.Background(), "origin criteria", candidates)
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
	if got[0].Key() != "c.txt:0" {
		t.Fatalf("expected overlap winner, got %s", got[0].Key())
	}
}

func TestParseRankedIndices(t *testing.T) {
	got := parseRankedIndices("The best passages are 2, 0, 2 and 7.", 3)
	if len(got) != 2 || got[0] != 2 || got[1] != 0 {
		t.Fatalf("unexpected indices %v", got)
	}
	if got := parseRankedIndices("no numbers here", 3); len(got) != 0 {
		t.Fatalf("expected empty parse, got %v", got)
	}
}
