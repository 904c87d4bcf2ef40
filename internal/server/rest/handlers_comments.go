package rest

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/gin-gonic/gin"
)

type addCommentRequest struct {
	ContentMarkdown string  `json:"contentMarkdown" binding:"required"`
	ParentComment   *string `json:"parentComment"`
}

// addComment handles POST /comments/:postId.
func (s *Server) addComment(c *gin.Context) {
	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: %s", common.ErrorInvalidArgument, err))
		return
	}

	view, err := s.comments.Add(c.Request.Context(), c.Param("postId"), requesterID(c),
		req.ContentMarkdown, req.ParentComment)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// listComments handles GET /comments/:postId.
func (s *Server) listComments(c *gin.Context) {
	views, err := s.comments.ListForPost(c.Request.Context(), c.Param("postId"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// deleteComment handles DELETE /comments/:id, owner only.
func (s *Server) deleteComment(c *gin.Context) {
	if err := s.comments.Delete(c.Request.Context(), c.Param("id"), requesterID(c)); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}
