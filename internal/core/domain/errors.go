package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedDocument = errors.New("malformed document")
	ErrEmbeddingService  = errors.New("embedding service failure")
	ErrCompletionService = errors.New("completion service failure")
	ErrIndexUnavailable  = errors.New("index unavailable")
	ErrRebuildInProgress = errors.New("rebuild already in progress")
	ErrInvalidInput      = errors.New("invalid input")
	ErrTemporary         = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
