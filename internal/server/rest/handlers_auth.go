package rest

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type registerRequest struct {
	Username string `form:"username" validate:"required,max=50"`
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=6"`
	Bio      string `form:"bio" validate:"max=500"`
}

// register handles POST /auth/register. The body is a multipart form with
// an optional avatar image; the avatar is stored before the user row and
// removed again if registration fails.
func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: %s", common.ErrorInvalidArgument, err))
		return
	}
	if err := validate.Struct(req); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: %s", common.ErrorInvalidArgument, err))
		return
	}

	avatarURL, avatarBlob, err := s.saveAvatar(c)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	user, token, err := s.users.Register(c.Request.Context(), services.RegisterParams{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Bio:       req.Bio,
		AvatarURL: avatarURL,
	})
	if err != nil {
		if avatarBlob != "" {
			_ = s.blobs.Remove(c.Request.Context(), avatarBlob)
		}
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user.Account()})
}

// saveAvatar stores the optional avatar upload and returns its public URL
// and blob name. No upload yields ("", "", nil) and the default avatar.
func (s *Server) saveAvatar(c *gin.Context) (avatarURL, blobName string, err error) {
	fh, err := c.FormFile("avatar")
	if err != nil {
		return "", "", nil
	}
	if err := validateUploads([]*multipart.FileHeader{fh}, 1, s.cfg.MaxAttachmentSize); err != nil {
		return "", "", err
	}

	src, err := fh.Open()
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", common.ErrorInvalidArgument, err)
	}
	defer src.Close()

	// the client filename is untrusted; only its extension survives
	blobName = uuid.New().String() + filepath.Ext(fh.Filename)
	avatarURL, err = s.blobs.Save(c.Request.Context(), blobName, src)
	if err != nil {
		return "", "", err
	}
	return avatarURL, blobName, nil
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// login handles POST /auth/login.
func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: %s", common.ErrorInvalidArgument, err))
		return
	}

	user, token, err := s.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user.Account()})
}

// account handles POST /auth/profile, returning the requester's own record.
func (s *Server) account(c *gin.Context) {
	user, err := s.users.Account(c.Request.Context(), requesterID(c))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.Account()})
}
