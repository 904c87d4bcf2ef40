package rest

import (
	"net/http"

	"github.com/dmitrijs2005/postboard/internal/server/config"
	"github.com/dmitrijs2005/postboard/internal/server/storage"
	"github.com/gin-gonic/gin"
)

func (s *Server) setupRoutes() {
	secret := []byte(s.cfg.SecretKey)

	// uploaded files: static for the disk backend, presigned redirects for S3
	if s.cfg.StorageBackend == config.StorageS3 && s.presigner != nil {
		s.engine.GET(storage.PublicPrefix+"/:name", s.serveUploadPresigned)
	} else {
		s.engine.Static(storage.PublicPrefix, s.cfg.UploadDir)
	}

	authGroup := s.engine.Group("/auth")
	{
		authGroup.POST("/register", s.register)
		authGroup.POST("/login", s.login)
		authGroup.POST("/profile", requireAuth(secret), s.account)
	}

	postsGroup := s.engine.Group("/posts")
	{
		postsGroup.GET("", s.listPosts)
		postsGroup.GET("/:id", s.getPost)
		postsGroup.POST("", requireAuth(secret), s.createPost)
		postsGroup.DELETE("/:id", requireAuth(secret), s.deletePost)
		postsGroup.POST("/:id/upvote", requireAuth(secret), s.vote)
		postsGroup.POST("/:id/downvote", requireAuth(secret), s.vote)
	}

	commentsGroup := s.engine.Group("/comments")
	{
		commentsGroup.GET("/:postId", s.listComments)
		commentsGroup.POST("/:postId", requireAuth(secret), s.addComment)
		commentsGroup.DELETE("/:id", requireAuth(secret), s.deleteComment)
	}

	usersGroup := s.engine.Group("/users")
	{
		usersGroup.PATCH("/me/privacy", requireAuth(secret), s.setPrivacy)
		usersGroup.GET("/:id", optionalAuth(secret), s.profile)
		usersGroup.POST("/:id/follow", requireAuth(secret), s.follow)
		usersGroup.POST("/:id/unfollow", requireAuth(secret), s.unfollow)
	}
}

// serveUploadPresigned redirects to a short-lived presigned URL for the
// object, keeping the public /uploads paths stable across backends.
func (s *Server) serveUploadPresigned(c *gin.Context) {
	url, err := s.presigner.PresignGet(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, url)
}
