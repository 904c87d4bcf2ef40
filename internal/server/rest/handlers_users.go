package rest

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/gin-gonic/gin"
)

// profile handles GET /users/:id. Auth is optional; the visibility gate
// decides how much the requester sees.
func (s *Server) profile(c *gin.Context) {
	view, err := s.users.Profile(c.Request.Context(), c.Param("id"), requesterID(c))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// follow handles POST /users/:id/follow.
func (s *Server) follow(c *gin.Context) {
	result, err := s.users.Follow(c.Request.Context(), requesterID(c), c.Param("id"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// unfollow handles POST /users/:id/unfollow.
func (s *Server) unfollow(c *gin.Context) {
	result, err := s.users.Unfollow(c.Request.Context(), requesterID(c), c.Param("id"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type setPrivacyRequest struct {
	IsPrivate *bool `json:"isPrivate" binding:"required"`
}

// setPrivacy handles PATCH /users/me/privacy.
func (s *Server) setPrivacy(c *gin.Context) {
	var req setPrivacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: %s", common.ErrorInvalidArgument, err))
		return
	}

	if err := s.users.SetPrivacy(c.Request.Context(), requesterID(c), *req.IsPrivate); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isPrivate": *req.IsPrivate})
}
