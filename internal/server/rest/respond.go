package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/gin-gonic/gin"
)

// statusFromError maps the sentinel error taxonomy onto HTTP status codes.
// Unknown errors are internal.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, common.ErrorInvalidArgument),
		errors.Is(err, common.ErrorAlreadyExists),
		errors.Is(err, common.ErrorInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError finishes the request with the mapped status and a JSON
// body. Internal errors are logged and their detail is not exposed.
func (s *Server) abortWithError(c *gin.Context, err error) {
	status := statusFromError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
