package usecase

import (
	"fmt"
	"strings"

	"github.com/tradewise/trade-data-assistant/internal/core/domain"
)

const promptFraming = `You are a trade regulation assistant. Answer the question using ONLY the
information in the context sources below. Cite sources as [Source N] in
your answer. If the sources do not contain enough information, say so.`

// PromptBuilder assembles the single instruction payload sent to the
// completion service. When the character budget is exceeded it drops
// oldest history turns first, then lowest-ranked passages. The question
// itself is never truncated.
type PromptBuilder struct {
	BudgetChars  int
	HistoryTurns int
}

func NewPromptBuilder(budgetChars, historyTurns int) *PromptBuilder {
	if budgetChars <= 0 {
		budgetChars = 4000
	}
	if historyTurns < 0 {
		historyTurns = 0
	}
	return &PromptBuilder{
		BudgetChars:  budgetChars,
		HistoryTurns: historyTurns,
	}
}

func (p *PromptBuilder) Build(question string, passages []domain.RetrievedChunk, history []domain.Turn) string {
	if len(history) > p.HistoryTurns {
		history = history[len(history)-p.HistoryTurns:]
	}

	for {
		prompt := assemblePrompt(question, passages, history)
		if len([]rune(prompt)) <= p.BudgetChars {
			return prompt
		}
		// History goes first, oldest turn out. Then the lowest-ranked
		// passage. The question always survives.
		if len(history) > 0 {
			history = history[1:]
			continue
		}
		if len(passages) > 0 {
			passages = passages[:len(passages)-1]
			continue
		}
		return prompt
	}
}

func assemblePrompt(question string, passages []domain.RetrievedChunk, history []domain.Turn) string {
	var b strings.Builder
	b.WriteString(promptFraming)

	if len(history) > 0 {
		b.WriteString("\n\nCONVERSATION SO FAR:\n")
		for _, turn := range history {
			b.WriteString("User: ")
			b.WriteString(turn.Question)
			b.WriteString("\nAssistant: ")
			b.WriteString(turn.Answer)
			b.WriteString("\n")
		}
	}

	if len(passages) > 0 {
		b.WriteString("\n\nCONTEXT SOURCES:\n")
		for i, chunk := range passages {
			fmt.Fprintf(&b, "[Source %d: %s chunk %d]\n%s\n\n", i+1, chunk.Filename, chunk.ChunkIndex, chunk.Text)
		}
	}

	b.WriteString("\nQUESTION: ")
	b.WriteString(question)
	return b.String()
}
