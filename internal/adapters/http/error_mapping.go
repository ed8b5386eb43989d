package httpadapter

import (
	"net/http"

	"github.com/tradewise/trade-data-assistant/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrRebuildInProgress):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrIndexUnavailable):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrEmbeddingService):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrCompletionService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicErrorMessage keeps upstream details out of 5xx bodies; 4xx causes
// are safe to show the caller.
func publicErrorMessage(err error, status int) string {
	if status < http.StatusInternalServerError {
		return err.Error()
	}
	switch status {
	case http.StatusServiceUnavailable:
		return "the service is temporarily unavailable, try again shortly"
	case http.StatusBadGateway:
		return "an upstream dependency failed, try again shortly"
	default:
		return "internal server error"
	}
}
