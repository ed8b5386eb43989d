package index

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/tradewise/trade-data-assistant/internal/core/domain"
)

// Holder is the process-wide pointer to the active Snapshot. Queries read
// whatever snapshot is current when they start; a rebuild publishes its
// replacement with a single atomic swap, so readers never observe a
// partially built index.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

func NewHolder() *Holder {
	return &Holder{}
}

func (h *Holder) Semantic(queryVector []float32, limit int) ([]domain.RetrievedChunk, error) {
	snap := h.current.Load()
	if snap == nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "index.semantic", errNoSnapshot)
	}
	return snap.semantic(queryVector, limit), nil
}

func (h *Holder) Lexical(query string, limit int) ([]domain.RetrievedChunk, error) {
	snap := h.current.Load()
	if snap == nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "index.lexical", errNoSnapshot)
	}
	return snap.lexicalSearch(query, limit), nil
}

func (h *Holder) Profile() (*domain.TopicProfile, error) {
	snap := h.current.Load()
	if snap == nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "index.profile", errNoSnapshot)
	}
	return snap.profile, nil
}

func (h *Holder) Stats() domain.IndexStats {
	snap := h.current.Load()
	if snap == nil {
		return domain.IndexStats{}
	}
	return snap.stats()
}

func (h *Holder) Swap(chunks []domain.Chunk, vectors [][]float32, profile *domain.TopicProfile, builtAt time.Time) {
	h.current.Store(NewSnapshot(chunks, vectors, profile, builtAt))
}

var errNoSnapshot = errors.New("no index snapshot loaded")
