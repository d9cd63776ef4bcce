package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/compliance-decoder/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUploadNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case domain.IsKind(err, domain.ErrModelInvocation):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(status int) string {
	switch status {
	case http.StatusBadGateway:
		return "upstream model service failed"
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable"
	default:
		return "Internal server error"
	}
}
