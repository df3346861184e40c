package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justyntemme/librarian/internal/apperr"
)

const internalErrorMessage = "Internal server error"

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.InvalidIdentifier, apperr.InvalidInput, apperr.DecodeFailed:
		return http.StatusBadRequest
	case apperr.AccessDenied:
		return http.StatusForbidden
	case apperr.NotFound, apperr.NotFoundUpstream:
		return http.StatusNotFound
	case apperr.DuplicateIdentifier:
		return http.StatusConflict
	case apperr.ResolutionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error", "kind"}. Server-side failures are
// logged and replaced by a generic message.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)

	message := apperr.Message(err, internalErrorMessage)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(c.Request.Context(), "Request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"kind", kind.String(),
			"error", err,
		)
		message = internalErrorMessage
	}

	c.AbortWithStatusJSON(status, gin.H{"error": message, "kind": kind.String()})
}
