package rest

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/server/services"
	"github.com/gin-gonic/gin"
)

type createPostRequest struct {
	Title           string `form:"title" validate:"required,max=200"`
	ContentMarkdown string `form:"contentMarkdown" validate:"required"`
}

// createPost handles POST /posts: a multipart form with title,
// contentMarkdown, repeatable tags and up to MaxAttachmentCount files under
// the attachments field.
func (s *Server) createPost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBind(&req); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: %s", common.ErrorInvalidArgument, err))
		return
	}
	if err := validate.Struct(req); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: %s", common.ErrorInvalidArgument, err))
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		s.abortWithError(c, fmt.Errorf("%w: %s", common.ErrorInvalidArgument, err))
		return
	}
	files := form.File["attachments"]
	if err := validateUploads(files, s.cfg.MaxAttachmentCount, s.cfg.MaxAttachmentSize); err != nil {
		s.abortWithError(c, err)
		return
	}

	uploads := make([]services.Upload, 0, len(files))
	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			s.abortWithError(c, fmt.Errorf("%w: %s", common.ErrorInvalidArgument, err))
			return
		}
		defer src.Close()
		uploads = append(uploads, services.Upload{
			OriginalName: fh.Filename,
			Mimetype:     fh.Header.Get("Content-Type"),
			Size:         fh.Size,
			Content:      src,
		})
	}

	view, err := s.posts.Create(c.Request.Context(), services.CreatePostParams{
		AuthorID:        requesterID(c),
		Title:           req.Title,
		ContentMarkdown: req.ContentMarkdown,
		Tags:            c.PostFormArray("tags"),
		Uploads:         uploads,
	})
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// listPosts handles GET /posts, optionally filtered by ?authorId=.
func (s *Server) listPosts(c *gin.Context) {
	views, err := s.posts.List(c.Request.Context(), c.Query("authorId"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// getPost handles GET /posts/:id.
func (s *Server) getPost(c *gin.Context) {
	view, err := s.posts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// deletePost handles DELETE /posts/:id, owner only.
func (s *Server) deletePost(c *gin.Context) {
	if err := s.posts.Delete(c.Request.Context(), c.Param("id"), requesterID(c)); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

// vote handles POST /posts/:id/upvote and /posts/:id/downvote; the vote
// kind is the final path segment.
func (s *Server) vote(c *gin.Context) {
	path := c.FullPath()
	kind := path[strings.LastIndex(path, "/")+1:]

	view, err := s.posts.Vote(c.Request.Context(), c.Param("id"), requesterID(c), kind)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
