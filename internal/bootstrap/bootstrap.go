package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tradewise/trade-data-assistant/internal/config"
	"github.com/tradewise/trade-data-assistant/internal/core/ports"
	"github.com/tradewise/trade-data-assistant/internal/core/usecase"
	"github.com/tradewise/trade-data-assistant/internal/infrastructure/chunking"
	"github.com/tradewise/trade-data-assistant/internal/infrastructure/corpus"
	"github.com/tradewise/trade-data-assistant/internal/infrastructure/index"
	"github.com/tradewise/trade-data-assistant/internal/infrastructure/llm/openai"
	"github.com/tradewise/trade-data-assistant/internal/infrastructure/queue/nats"
	"github.com/tradewise/trade-data-assistant/internal/infrastructure/repository/postgres"
	"github.com/tradewise/trade-data-assistant/internal/infrastructure/resilience"
	"github.com/tradewise/trade-data-assistant/internal/infrastructure/session"
	"github.com/tradewise/trade-data-assistant/internal/infrastructure/topicstore"
)

// App wires the full dependency graph once; api and worker mains pick the
// pieces they serve.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Index     ports.SearchIndex
	Queue     ports.RebuildQueue
	Sessions  *session.Store
	AskUC     ports.AskService
	Rebuilder ports.IndexRebuilder
	RebuildUC *usecase.RebuildUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewIndexRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.QueueConfig()).WithLogger(logger),
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init rebuild queue: %w", err)
	}

	llmClient := openai.New(openai.Config{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		EmbedModel:  cfg.LLMEmbedModel,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	embedder := openai.NewEmbedder(llmClient, cfg.EmbedRatePerSec)
	generator := openai.NewGenerator(llmClient)

	holder := index.NewHolder()
	sessions := session.NewStore(time.Duration(cfg.SessionTTLMinutes) * time.Minute)

	askUC := usecase.NewAskUseCase(
		holder,
		embedder,
		generator,
		usecase.NewReranker(generator, cfg.RerankTopK, logger),
		usecase.NewPromptBuilder(cfg.PromptBudgetChars, cfg.HistoryTurns),
		sessions,
		usecase.NewProactiveEngine(cfg.StuckWindow, cfg.StuckSimilarity),
		usecase.AskConfig{
			RetrievalCandidates: cfg.RetrievalCandidates,
			SemanticWeight:      cfg.SemanticWeight,
			LexicalWeight:       cfg.LexicalWeight,
			HistoryTurns:        cfg.HistoryTurns,
		},
		logger,
	)

	rebuildUC := usecase.NewRebuildUseCase(
		corpus.NewLoader(cfg.CorpusDir),
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder,
		holder,
		repo,
		topicstore.NewFileStore(cfg.TopicProfilePath),
		cfg.TopicThreshold,
		cfg.EmbedBatchSize,
		logger,
	)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Index:     holder,
		Queue:     queue,
		Sessions:  sessions,
		AskUC:     askUC,
		Rebuilder: rebuildUC,
		RebuildUC: rebuildUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
