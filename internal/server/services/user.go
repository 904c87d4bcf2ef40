// Package services contains server-side business logic. This file implements
// UserService: registration, login, own-profile access, privacy toggling,
// the follow graph, and the profile visibility gate.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/dbx"
	"github.com/dmitrijs2005/postboard/internal/server/auth"
	"github.com/dmitrijs2005/postboard/internal/server/config"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"github.com/dmitrijs2005/postboard/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// DefaultAvatarPath is used when registration carries no avatar upload.
const DefaultAvatarPath = "/uploads/default-avatar.jpg"

// UserService provides identity and social-graph operations.
type UserService struct {
	db                    *sql.DB
	repomanager           repomanager.RepositoryManager
	jwtSecret             []byte
	tokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                    db,
		repomanager:           m,
		jwtSecret:             []byte(cfg.SecretKey),
		tokenValidityDuration: cfg.TokenValidityDuration,
	}
}

// RegisterParams carries the validated registration input. AvatarURL is the
// public path of an already-stored upload; empty means the default avatar.
type RegisterParams struct {
	Username  string
	Email     string
	Password  string
	Bio       string
	AvatarURL string
}

// Register creates a user and issues its first bearer token. A duplicate
// username or email yields common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, p RegisterParams) (*models.User, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", common.ErrorInternal
	}

	avatarURL := p.AvatarURL
	if avatarURL == "" {
		avatarURL = DefaultAvatarPath
	}

	user := &models.User{
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: string(hash),
		AvatarURL:    avatarURL,
		Bio:          p.Bio,
	}

	repo := s.repomanager.Users(s.db)
	user, err = repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, "", common.ErrorAlreadyExists
		}
		return nil, "", fmt.Errorf("error creating user: %w", err)
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenValidityDuration)
	if err != nil {
		return nil, "", common.ErrorInternal
	}
	return user, token, nil
}

// Login verifies credentials and mints a bearer token. Unknown email and
// wrong password both yield common.ErrorInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, "", common.ErrorInvalidCredentials
		}
		return nil, "", common.ErrorInternal
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", common.ErrorInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenValidityDuration)
	if err != nil {
		return nil, "", common.ErrorInternal
	}
	return user, token, nil
}

// Account returns the requester's own record.
func (s *UserService) Account(ctx context.Context, userID string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, userID)
}

// SetPrivacy flips the owner's private flag. The change only affects future
// visibility computations; nothing already granted is revoked.
func (s *UserService) SetPrivacy(ctx context.Context, userID string, isPrivate bool) error {
	return s.repomanager.Users(s.db).SetPrivacy(ctx, userID, isPrivate)
}

// visibility implements the profile gate. isFollowing is membership of the
// requester in the persisted followers set; canViewFull is granted to the
// owner, to anyone when the profile is public, and to followers otherwise.
// An empty requesterID means an anonymous request.
func visibility(profile *models.User, followers []models.UserRef, requesterID string) (canViewFull, isFollowing bool) {
	if requesterID != "" {
		for _, f := range followers {
			if f.ID == requesterID {
				isFollowing = true
				break
			}
		}
	}
	canViewFull = requesterID == profile.ID || !profile.IsPrivate || isFollowing
	return canViewFull, isFollowing
}

// Profile returns another user's profile as seen by requesterID (empty for
// anonymous). When the visibility gate denies full view, the bio is
// suppressed and the follower/following sets degrade to counts only.
func (s *UserService) Profile(ctx context.Context, profileID, requesterID string) (*models.ProfileView, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}

	followers, err := repo.Followers(ctx, profileID)
	if err != nil {
		return nil, err
	}
	following, err := repo.Following(ctx, profileID)
	if err != nil {
		return nil, err
	}

	canViewFull, isFollowing := visibility(user, followers, requesterID)

	pu := models.ProfileUser{
		ID:             user.ID,
		Username:       user.Username,
		AvatarURL:      user.AvatarURL,
		IsPrivate:      user.IsPrivate,
		FollowersCount: len(followers),
		FollowingCount: len(following),
		CreatedAt:      user.CreatedAt,
	}
	if canViewFull {
		pu.Bio = user.Bio
		pu.Followers = followers
		pu.Following = following
	}

	return &models.ProfileView{User: pu, CanViewFull: canViewFull, IsFollowing: isFollowing}, nil
}

// Follow inserts the follow edge followerID→targetID. Following yourself is
// an invalid argument; a missing user on either side is NotFound. The edge
// insert is idempotent, so a double follow succeeds without duplicating.
// Both set mutations are one row in the follows table, applied in a single
// transaction together with the existence checks.
func (s *UserService) Follow(ctx context.Context, followerID, targetID string) (*models.FollowResult, error) {
	return s.mutateFollow(ctx, followerID, targetID, true)
}

// Unfollow removes the follow edge. Removing an absent edge succeeds.
func (s *UserService) Unfollow(ctx context.Context, followerID, targetID string) (*models.FollowResult, error) {
	return s.mutateFollow(ctx, followerID, targetID, false)
}

func (s *UserService) mutateFollow(ctx context.Context, followerID, targetID string, follow bool) (*models.FollowResult, error) {
	if followerID == targetID {
		return nil, fmt.Errorf("%w: cannot follow yourself", common.ErrorInvalidArgument)
	}

	var result *models.FollowResult
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		target, err := repo.GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		exists, err := repo.Exists(ctx, followerID)
		if err != nil {
			return err
		}
		if !exists {
			return common.ErrorNotFound
		}

		if follow {
			err = repo.AddFollow(ctx, followerID, targetID)
		} else {
			err = repo.RemoveFollow(ctx, followerID, targetID)
		}
		if err != nil {
			return err
		}

		followersCount, err := repo.FollowerCount(ctx, targetID)
		if err != nil {
			return err
		}
		followingCount, err := repo.FollowingCount(ctx, followerID)
		if err != nil {
			return err
		}

		message := fmt.Sprintf("Successfully followed %s!", target.Username)
		if !follow {
			message = fmt.Sprintf("Successfully unfollowed %s.", target.Username)
		}
		result = &models.FollowResult{
			Message:                 message,
			UserFollowersCount:      followersCount,
			CurrentUserFollowingCnt: followingCount,
			IsFollowing:             follow,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
