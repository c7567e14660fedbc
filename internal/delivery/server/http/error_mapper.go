package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	askerrors "askview/internal/shared/errors"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// mapError translates a service or validation error into a status code and
// a user-facing message.
func mapError(err error) (status int, message string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, context.Canceled):
		return 499, "request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	default:
		return askerrors.HTTPStatus(err), askerrors.FormatForUser(err)
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status, message := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "request failed",
			"path", c.FullPath(),
			"error_type", askerrors.GetErrorType(err).String(),
			"error", err,
		)
	} else {
		s.logger.WarnContext(c.Request.Context(), "request rejected",
			"path", c.FullPath(),
			"status", status,
			"error", err,
		)
	}
	c.AbortWithStatusJSON(status, errorResponse{Success: false, Error: message})
}
