// Package rest exposes the public HTTP API: identity, posts, votes,
// comments and the social graph, plus static serving of uploaded files.
package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/postboard/internal/logging"
	"github.com/dmitrijs2005/postboard/internal/server/config"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"github.com/dmitrijs2005/postboard/internal/server/services"
	"github.com/dmitrijs2005/postboard/internal/server/storage"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// validate checks request structs carrying validate tags. Bound JSON bodies
// go through gin's binding validator instead.
var validate = validator.New()

// UserService is the identity and social-graph surface the handlers call.
type UserService interface {
	Register(ctx context.Context, p services.RegisterParams) (*models.User, string, error)
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	Account(ctx context.Context, userID string) (*models.User, error)
	SetPrivacy(ctx context.Context, userID string, isPrivate bool) error
	Profile(ctx context.Context, profileID, requesterID string) (*models.ProfileView, error)
	Follow(ctx context.Context, followerID, targetID string) (*models.FollowResult, error)
	Unfollow(ctx context.Context, followerID, targetID string) (*models.FollowResult, error)
}

// PostService is the post CRUD and vote surface the handlers call.
type PostService interface {
	Create(ctx context.Context, p services.CreatePostParams) (*models.PostView, error)
	List(ctx context.Context, authorID string) ([]*models.PostView, error)
	Get(ctx context.Context, id string) (*models.PostView, error)
	Delete(ctx context.Context, id, requesterID string) error
	Vote(ctx context.Context, postID, voterID, kind string) (*models.PostView, error)
}

// CommentService is the comment surface the handlers call.
type CommentService interface {
	Add(ctx context.Context, postID, authorID, content string, parentCommentID *string) (*models.CommentView, error)
	ListForPost(ctx context.Context, postID string) ([]*models.CommentView, error)
	Delete(ctx context.Context, id, requesterID string) error
}

// Server is the HTTP front of the application.
type Server struct {
	cfg      *config.Config
	logger   logging.Logger
	users    UserService
	posts    PostService
	comments CommentService
	blobs    storage.BlobStore

	// presigner is set for the S3 backend; uploads are then served via
	// redirects to presigned URLs instead of from disk.
	presigner storage.Presigner

	engine *gin.Engine
	srv    *http.Server
}

func NewServer(cfg *config.Config, logger logging.Logger, users UserService,
	posts PostService, comments CommentService, blobs storage.BlobStore,
	presigner storage.Presigner) *Server {

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		users:     users,
		posts:     posts,
		comments:  comments,
		blobs:     blobs,
		presigner: presigner,
	}

	gin.SetMode(gin.ReleaseMode)
	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	s.setupRoutes()

	s.srv = &http.Server{Addr: cfg.EndpointAddrHTTP, Handler: s.engine}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.cfg.EndpointAddrHTTP)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info(ctx, "shutting down http server")
		return s.srv.Shutdown(context.Background())
	}
}
