package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tradewise/trade-data-assistant/internal/core/domain"
	"github.com/tradewise/trade-data-assistant/internal/core/ports"
)

type askState string

const (
	stateReceived   askState = "received"
	stateFiltered   askState = "filtered"
	stateRetrieved  askState = "retrieved"
	stateReranked   askState = "reranked"
	statePrompted   askState = "prompted"
	stateCompleted  askState = "completed"
	stateAnswered   askState = "answered"
	stateRedirected askState = "redirected"
	stateFailed     askState = "failed"
)

// The fallback is deliberately fixed: upstream error text never reaches
// the caller.
const fallbackAnswer = "I apologize, but I am unable to generate an answer right now. Please try asking again in a moment."

const (
	embedCallTimeout    = 30 * time.Second
	completeCallTimeout = 60 * time.Second
)

type AskConfig struct {
	RetrievalCandidates int
	SemanticWeight      float64
	LexicalWeight       float64
	HistoryTurns        int
}

// AskUseCase runs one question through the answer pipeline: domain
// filter, hybrid retrieval, rerank, prompt, completion. Stages that only
// enrich the answer degrade on failure; only the completion call can turn
// a turn into a failure, and even then the caller gets the fixed fallback
// with the turn recorded.
type AskUseCase struct {
	index       ports.SearchIndex
	embedder    ports.Embedder
	completions ports.CompletionClient
	reranker    *Reranker
	prompts     *PromptBuilder
	sessions    ports.ConversationStore
	proactive   *ProactiveEngine
	cfg         AskConfig
	logger      *slog.Logger
	now         func() time.Time
}

func NewAskUseCase(
	index ports.SearchIndex,
	embedder ports.Embedder,
	completions ports.CompletionClient,
	reranker *Reranker,
	prompts *PromptBuilder,
	sessions ports.ConversationStore,
	proactive *ProactiveEngine,
	cfg AskConfig,
	logger *slog.Logger,
) *AskUseCase {
	if cfg.RetrievalCandidates <= 0 {
		cfg.RetrievalCandidates = 10
	}
	if cfg.SemanticWeight <= 0 && cfg.LexicalWeight <= 0 {
		cfg.SemanticWeight, cfg.LexicalWeight = 0.6, 0.4
	}
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AskUseCase{
		index:       index,
		embedder:    embedder,
		completions: completions,
		reranker:    reranker,
		prompts:     prompts,
		sessions:    sessions,
		proactive:   proactive,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

func (uc *AskUseCase) Ask(ctx context.Context, sessionID, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if sessionID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", fmt.Errorf("session id is required"))
	}
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", fmt.Errorf("question is empty"))
	}

	state := stateReceived
	transition := func(next askState) {
		uc.logger.Debug("ask_state", "session_id", sessionID, "from", string(state), "to", string(next))
		state = next
	}

	release := uc.sessions.Acquire(sessionID)
	defer release()

	profile, err := uc.index.Profile()
	if err != nil {
		return nil, err
	}

	historyWindow := uc.cfg.HistoryTurns
	if uc.proactive != nil && uc.proactive.Window > historyWindow {
		historyWindow = uc.proactive.Window
	}
	history := uc.sessions.History(sessionID, historyWindow)

	var signals domain.ProactiveSignals
	if uc.proactive != nil {
		signals = uc.proactive.Analyze(history, question, uc.now())
	}

	classification := classifyQuestion(profile, question)
	transition(stateFiltered)

	if !classification.InDomain {
		transition(stateRedirected)
		answer := &domain.Answer{
			Text:       redirectAnswer(profile),
			Redirected: true,
		}
		if uc.proactive != nil {
			answer.Suggestions = uc.proactive.Suggest(profile, nil, signals)
		}
		uc.recordTurn(sessionID, question, answer)
		return answer, nil
	}

	candidates := uc.retrieve(ctx, sessionID, question)
	transition(stateRetrieved)

	reranked := candidates
	if uc.reranker != nil {
		reranked = uc.reranker.Rerank(ctx, question, candidates)
	}
	transition(stateReranked)

	promptHistory := history
	if len(promptHistory) > uc.cfg.HistoryTurns {
		promptHistory = promptHistory[len(promptHistory)-uc.cfg.HistoryTurns:]
	}
	prompt := uc.prompts.Build(question, reranked, promptHistory)
	transition(statePrompted)

	completeCtx, cancel := context.WithTimeout(ctx, completeCallTimeout)
	answerText, err := uc.completions.Complete(completeCtx, prompt)
	cancel()
	if err != nil {
		transition(stateFailed)
		uc.logger.Error("completion_failed", "session_id", sessionID, "error", err)
		answer := &domain.Answer{Text: fallbackAnswer}
		uc.recordTurn(sessionID, question, answer)
		return answer, nil
	}
	transition(stateCompleted)

	answer := &domain.Answer{
		Text:    answerText,
		Sources: reranked,
	}
	if uc.proactive != nil && signals.Stuck {
		answer.Suggestions = uc.proactive.Suggest(profile, reranked, signals)
	}

	uc.recordTurn(sessionID, question, answer)
	transition(stateAnswered)
	return answer, nil
}

// retrieve gathers hybrid candidates. An embedding failure drops the
// semantic signal and continues with lexical hits alone.
func (uc *AskUseCase) retrieve(ctx context.Context, sessionID, question string) []domain.RetrievedChunk {
	var semantic []domain.RetrievedChunk

	embedCtx, cancel := context.WithTimeout(ctx, embedCallTimeout)
	queryVector, err := uc.embedder.EmbedQuery(embedCtx, question)
	cancel()
	if err != nil {
		uc.logger.Warn("semantic_retrieval_degraded", "session_id", sessionID, "error", err)
	} else {
		semantic, err = uc.index.Semantic(queryVector, uc.cfg.RetrievalCandidates)
		if err != nil {
			uc.logger.Warn("semantic_retrieval_degraded", "session_id", sessionID, "error", err)
			semantic = nil
		}
	}

	lexical, err := uc.index.Lexical(question, uc.cfg.RetrievalCandidates)
	if err != nil {
		uc.logger.Warn("lexical_retrieval_degraded", "session_id", sessionID, "error", err)
		lexical = nil
	}

	fused := fuseWeighted(semantic, lexical, uc.cfg.SemanticWeight, uc.cfg.LexicalWeight)
	return trimCandidates(fused, uc.cfg.RetrievalCandidates)
}

func (uc *AskUseCase) recordTurn(sessionID, question string, answer *domain.Answer) {
	keys := make([]string, 0, len(answer.Sources))
	for _, chunk := range answer.Sources {
		keys = append(keys, chunk.Key())
	}
	uc.sessions.AppendTurn(sessionID, domain.Turn{
		ID:         uuid.NewString(),
		Question:   question,
		Answer:     answer.Text,
		ChunkKeys:  keys,
		Redirected: answer.Redirected,
		CreatedAt:  uc.now(),
	})
}

func redirectAnswer(profile *domain.TopicProfile) string {
	var b strings.Builder
	b.WriteString("Your question appears to be outside the scope of the ingested trade regulation corpus. ")
	b.WriteString("I can help with the following areas:\n")
	for _, area := range profile.CoverageAreas {
		b.WriteString("- ")
		b.WriteString(area)
		b.WriteString("\n")
	}
	b.WriteString("Please rephrase your question to one of these areas.")
	return b.String()
}
