package ports

import (
	"context"
	"time"

	"github.com/tradewise/trade-data-assistant/internal/core/domain"
)

// DocumentSource loads the corpus. Per-document extraction failures are
// reported, not fatal.
type DocumentSource interface {
	LoadAll(ctx context.Context) ([]domain.Document, []domain.FailedDocument, error)
}

// Chunker splits an extracted document into overlapping chunks.
type Chunker interface {
	Split(doc *domain.Document) ([]domain.Chunk, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// CompletionClient generates free-form text from a single prompt.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// SearchIndex serves retrieval over the active corpus snapshot and accepts
// a replacement snapshot on rebuild. Query methods return
// domain.ErrIndexUnavailable until the first Swap.
type SearchIndex interface {
	Semantic(queryVector []float32, limit int) ([]domain.RetrievedChunk, error)
	Lexical(query string, limit int) ([]domain.RetrievedChunk, error)
	Profile() (*domain.TopicProfile, error)
	Stats() domain.IndexStats
	Swap(chunks []domain.Chunk, vectors [][]float32, profile *domain.TopicProfile, builtAt time.Time)
}

// IndexRepository persists the corpus layout so a restarted process can
// serve queries without re-embedding.
type IndexRepository interface {
	ReplaceCorpus(ctx context.Context, docs []domain.Document, chunks []domain.Chunk, vectors [][]float32) error
	LoadCorpus(ctx context.Context) ([]domain.Document, []domain.Chunk, [][]float32, error)
}

// ConversationStore owns per-session turn history. Acquire serializes
// turns for one session; the returned release func must be called when the
// turn completes. History and AppendTurn are only safe for the holder of
// the session's acquire.
type ConversationStore interface {
	Acquire(sessionID string) (release func())
	History(sessionID string, n int) []domain.Turn
	AppendTurn(sessionID string, turn domain.Turn)
	LastTurnAt(sessionID string) (time.Time, bool)
}

// RebuildQueue publishes/consumes rebuild trigger events.
type RebuildQueue interface {
	PublishRebuildRequested(ctx context.Context) error
	SubscribeRebuildRequested(ctx context.Context, handler func(context.Context) error) error
}

// TopicProfileStore persists the operator-facing profile snapshot.
type TopicProfileStore interface {
	Save(profile *domain.TopicProfile) error
}
