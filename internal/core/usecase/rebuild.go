package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tradewise/trade-data-assistant/internal/core/domain"
	"github.com/tradewise/trade-data-assistant/internal/core/ports"
)

// RebuildUseCase runs the ingestion pipeline: load the corpus, chunk,
// embed, derive the topic profile, persist, and swap the serving
// snapshot. At most one rebuild runs at a time; a second request is
// rejected immediately, and queries keep hitting the previous snapshot
// until the swap at the very end.
type RebuildUseCase struct {
	source   ports.DocumentSource
	chunker  ports.Chunker
	embedder ports.Embedder
	index    ports.SearchIndex
	repo     ports.IndexRepository
	profiles ports.TopicProfileStore

	topicThreshold float64
	batchSize      int
	logger         *slog.Logger
	now            func() time.Time

	mu sync.Mutex
}

func NewRebuildUseCase(
	source ports.DocumentSource,
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.SearchIndex,
	repo ports.IndexRepository,
	profiles ports.TopicProfileStore,
	topicThreshold float64,
	batchSize int,
	logger *slog.Logger,
) *RebuildUseCase {
	if batchSize <= 0 {
		batchSize = 32
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RebuildUseCase{
		source:         source,
		chunker:        chunker,
		embedder:       embedder,
		index:          index,
		repo:           repo,
		profiles:       profiles,
		topicThreshold: topicThreshold,
		batchSize:      batchSize,
		logger:         logger,
		now:            time.Now,
	}
}

func (uc *RebuildUseCase) Rebuild(ctx context.Context) (*domain.IngestionReport, error) {
	if !uc.mu.TryLock() {
		return nil, domain.WrapError(domain.ErrRebuildInProgress, "rebuild", fmt.Errorf("another rebuild is running"))
	}
	defer uc.mu.Unlock()

	started := uc.now()
	uc.logger.Info("rebuild_started")

	docs, failed, err := uc.source.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	var (
		ingested []domain.Document
		chunks   []domain.Chunk
	)
	for _, doc := range docs {
		doc := doc
		docChunks, err := uc.chunker.Split(&doc)
		if err != nil {
			failed = append(failed, domain.FailedDocument{Filename: doc.Filename, Reason: err.Error()})
			continue
		}
		ingested = append(ingested, doc)
		chunks = append(chunks, docChunks...)
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("rebuild: no ingestable documents in corpus (%d failed)", len(failed))
	}

	vectors, err := uc.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	builtAt := uc.now().UTC()
	profile := BuildTopicProfile(ingested, uc.topicThreshold, builtAt)

	if uc.repo != nil {
		if err := uc.repo.ReplaceCorpus(ctx, ingested, chunks, vectors); err != nil {
			return nil, fmt.Errorf("persist corpus: %w", err)
		}
	}

	if uc.profiles != nil {
		// The YAML snapshot is operator convenience; a write failure must
		// not abort the rebuild.
		if err := uc.profiles.Save(profile); err != nil {
			uc.logger.Warn("topic_profile_write_failed", "error", err)
		}
	}

	uc.index.Swap(chunks, vectors, profile, builtAt)

	images := 0
	for _, doc := range ingested {
		images += len(doc.Images)
	}

	report := &domain.IngestionReport{
		Documents:   len(ingested),
		Chunks:      len(chunks),
		Images:      images,
		Failed:      failed,
		CompletedAt: builtAt,
	}
	uc.logger.Info("rebuild_completed",
		"documents", report.Documents,
		"chunks", report.Chunks,
		"images", report.Images,
		"failed", len(report.Failed),
		"duration_ms", uc.now().Sub(started).Milliseconds(),
	)
	return report, nil
}

func (uc *RebuildUseCase) embedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += uc.batchSize {
		end := start + uc.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, chunk := range chunks[start:end] {
			texts = append(texts, chunk.Text)
		}
		batch, err := uc.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d..%d: %w", start, end, err)
		}
		if len(batch) != len(texts) {
			return nil, domain.WrapError(domain.ErrEmbeddingService, "rebuild.embed",
				fmt.Errorf("expected %d vectors, got %d", len(texts), len(batch)))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// Restore rebuilds the serving snapshot from the persisted corpus, so an
// api restart serves queries without re-embedding. An empty store is not
// an error; the index simply stays unavailable until the first rebuild.
// Calling it periodically is how an api process picks up rebuilds done by
// a worker: a store no newer than the serving snapshot is left alone.
func (uc *RebuildUseCase) Restore(ctx context.Context) error {
	if uc.repo == nil {
		return nil
	}

	docs, chunks, vectors, err := uc.repo.LoadCorpus(ctx)
	if err != nil {
		return fmt.Errorf("load persisted corpus: %w", err)
	}
	if len(chunks) == 0 {
		uc.logger.Info("restore_skipped", "reason", "empty corpus store")
		return nil
	}

	latest := time.Time{}
	for _, doc := range docs {
		if doc.IngestedAt.After(latest) {
			latest = doc.IngestedAt
		}
	}
	if stats := uc.index.Stats(); stats.Ready && !latest.After(stats.LastRebuild) {
		return nil
	}

	// Persisted documents carry no text; reassemble enough of it from
	// their chunks for the topic profile to mine terms.
	texts := make(map[string]*strings.Builder, len(docs))
	for _, chunk := range chunks {
		b, ok := texts[chunk.DocumentID]
		if !ok {
			b = &strings.Builder{}
			texts[chunk.DocumentID] = b
		}
		b.WriteString(chunk.Text)
		b.WriteString("\n")
	}

	for i := range docs {
		if b, ok := texts[docs[i].ID]; ok {
			docs[i].Text = b.String()
		}
	}

	profile := BuildTopicProfile(docs, uc.topicThreshold, latest)
	uc.index.Swap(chunks, vectors, profile, latest)

	uc.logger.Info("restore_completed", "documents", len(docs), "chunks", len(chunks))
	return nil
}
