package ports

import (
	"context"

	"github.com/tradewise/trade-data-assistant/internal/core/domain"
)

// AskService is the inbound contract for answering one question within a
// session.
type AskService interface {
	Ask(ctx context.Context, sessionID, question string) (*domain.Answer, error)
}

// IndexRebuilder is the inbound contract for rebuilding the corpus index.
type IndexRebuilder interface {
	Rebuild(ctx context.Context) (*domain.IngestionReport, error)
}
