package config

import "testing"

func TestLoadIncludesRetrievalDefaults(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "")
	t.Setenv("CHUNK_OVERLAP", "")
	t.Setenv("TOP_K_RETRIEVAL", "")
	t.Setenv("TOP_K_RERANK", "")
	t.Setenv("SEMANTIC_WEIGHT", "")
	t.Setenv("MAX_CONTEXT_LENGTH", "")

	cfg := Load()
	if cfg.ChunkSize != 1000 {
		t.Fatalf("expected default chunk size 1000, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap != 200 {
		t.Fatalf("expected default chunk overlap 200, got %d", cfg.ChunkOverlap)
	}
	if cfg.RetrievalCandidates != 10 {
		t.Fatalf("expected default retrieval candidates 10, got %d", cfg.RetrievalCandidates)
	}
	if cfg.RerankTopK != 5 {
		t.Fatalf("expected default rerank top k 5, got %d", cfg.RerankTopK)
	}
	if cfg.SemanticWeight != 0.6 {
		t.Fatalf("expected default semantic weight 0.6, got %v", cfg.SemanticWeight)
	}
	if cfg.PromptBudgetChars != 4000 {
		t.Fatalf("expected default prompt budget 4000, got %d", cfg.PromptBudgetChars)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("TOP_K_RETRIEVAL", "25")
	t.Setenv("TOP_K_RERANK", "8")
	t.Setenv("SEMANTIC_WEIGHT", "0.75")
	t.Setenv("LEXICAL_WEIGHT", "0.25")
	t.Setenv("STUCK_WINDOW", "7")

	cfg := Load()
	if cfg.RetrievalCandidates != 25 {
		t.Fatalf("expected retrieval candidates 25, got %d", cfg.RetrievalCandidates)
	}
	if cfg.RerankTopK != 8 {
		t.Fatalf("expected rerank top k 8, got %d", cfg.RerankTopK)
	}
	if cfg.SemanticWeight != 0.75 {
		t.Fatalf("expected semantic weight 0.75, got %v", cfg.SemanticWeight)
	}
	if cfg.LexicalWeight != 0.25 {
		t.Fatalf("expected lexical weight 0.25, got %v", cfg.LexicalWeight)
	}
	if cfg.StuckWindow != 7 {
		t.Fatalf("expected stuck window 7, got %d", cfg.StuckWindow)
	}
}

func TestLoadFallsBackOnBadNumbers(t *testing.T) {
	t.Setenv("TOP_K_RETRIEVAL", "not-a-number")
	t.Setenv("TEMPERATURE", "warm")

	cfg := Load()
	if cfg.RetrievalCandidates != 10 {
		t.Fatalf("expected fallback retrieval candidates 10, got %d", cfg.RetrievalCandidates)
	}
	if cfg.Temperature != 0.7 {
		t.Fatalf("expected fallback temperature 0.7, got %v", cfg.Temperature)
	}
}
