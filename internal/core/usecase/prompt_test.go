package usecase

import (
	"strings"
	"testing"
	"time"

	"github.com/tradewise/trade-data-assistant/internal/core/domain"
)

func promptPassage(filename string, idx int, text string) domain.RetrievedChunk {
	return domain.RetrievedChunk{
		DocumentID: filename,
		Filename:   filename,
		ChunkIndex: idx,
		Text:       text,
	}
}

func promptTurn(question, answer string) domain.Turn {
	return domain.Turn{
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now(),
	}
}

func TestBuildIncludesAllSections(t *testing.T) {
	builder := NewPromptBuilder(4000, 4)

	prompt := builder.Build(
		"what are the quota rules?",
		[]domain.RetrievedChunk{promptPassage("quotas.txt", 2, "Quotas are capped annually.")},
		[]domain.Turn{promptTurn("hello", "hi there")},
	)

	if !strings.Contains(prompt, "[Source 1: quotas.txt chunk 2]") {
		t.Fatalf("missing source tag in prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Quotas are capped annually.") {
		t.Fatalf("missing passage text")
	}
	if !strings.Contains(prompt, "User: hello") || !strings.Contains(prompt, "Assistant: hi there") {
		t.Fatalf("missing conversation history")
	}
	if !strings.HasSuffix(prompt, "QUESTION: what are the quota rules?") {
		t.Fatalf("prompt must end with the question")
	}
}

func TestBuildDropsOldestHistoryBeforePassages(t *testing.T) {
	passages := []domain.RetrievedChunk{
		promptPassage("a.txt", 0, strings.Repeat("alpha ", 20)),
		promptPassage("b.txt", 0, strings.Repeat("beta ", 20)),
	}
	history := []domain.Turn{
		promptTurn(strings.Repeat("old question ", 20), strings.Repeat("old answer ", 20)),
		promptTurn("recent question", "recent answer"),
	}

	full := len([]rune(assemblePrompt("q", passages, history)))
	withoutOldest := len([]rune(assemblePrompt("q", passages, history[1:])))

	// Budget fits once the oldest turn is gone, so passages must survive.
	builder := NewPromptBuilder(withoutOldest, 4)
	prompt := builder.Build("q", passages, history)

	if len([]rune(prompt)) > withoutOldest {
		t.Fatalf("prompt over budget: %d > %d (full was %d)", len([]rune(prompt)), withoutOldest, full)
	}
	if strings.Contains(prompt, "old question") {
		t.Fatalf("oldest history turn must be dropped first")
	}
	if !strings.Contains(prompt, "recent question") {
		t.Fatalf("recent history turn must survive")
	}
	if !strings.Contains(prompt, "alpha") || !strings.Contains(prompt, "beta") {
		t.Fatalf("passages must survive while history can still be dropped")
	}
}

func TestBuildDropsLowestRankedPassageAfterHistory(t *testing.T) {
	passages := []domain.RetrievedChunk{
		promptPassage("top.txt", 0, strings.Repeat("primary ", 30)),
		promptPassage("tail.txt", 0, strings.Repeat("secondary ", 30)),
	}

	budget := len([]rune(assemblePrompt("q", passages[:1], nil)))
	builder := NewPromptBuilder(budget, 4)
	prompt := builder.Build("q", passages, nil)

	if !strings.Contains(prompt, "primary") {
		t.Fatalf("top-ranked passage must survive")
	}
	if strings.Contains(prompt, "secondary") {
		t.Fatalf("lowest-ranked passage must be dropped")
	}
}

func TestBuildNeverTruncatesQuestion(t *testing.T) {
	question := strings.Repeat("very long question ", 50)
	builder := NewPromptBuilder(100, 4)

	prompt := builder.Build(question, nil, nil)
	if !strings.Contains(prompt, question) {
		t.Fatalf("question must never be truncated")
	}
}

func TestBuildTrimsHistoryToConfiguredTurns(t *testing.T) {
	history := []domain.Turn{
		promptTurn("first", "a1"),
		promptTurn("second", "a2"),
		promptTurn("third", "a3"),
	}
	builder := NewPromptBuilder(4000, 2)

	prompt := builder.Build("q", nil, history)
	if strings.Contains(prompt, "User: first") {
		t.Fatalf("history beyond the configured window must be excluded")
	}
	if !strings.Contains(prompt, "User: second") || !strings.Contains(prompt, "User: third") {
		t.Fatalf("latest turns must be kept")
	}
}
