// Package users persists identity records and the follow graph.
package users

import (
	"context"

	"github.com/dmitrijs2005/postboard/internal/server/models"
)

// Repository is the persistence boundary for users and the follows table.
// The follower/following sets are mutated only through AddFollow and
// RemoveFollow, never written directly.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Exists(ctx context.Context, id string) (bool, error)
	SetPrivacy(ctx context.Context, id string, isPrivate bool) error

	// Refs batch-fetches minimal projections for a set of user ids.
	Refs(ctx context.Context, ids []string) ([]models.UserRef, error)

	Followers(ctx context.Context, id string) ([]models.UserRef, error)
	Following(ctx context.Context, id string) ([]models.UserRef, error)
	FollowerCount(ctx context.Context, id string) (int, error)
	FollowingCount(ctx context.Context, id string) (int, error)
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)

	// AddFollow and RemoveFollow are idempotent at the set level: inserting
	// an existing edge or removing an absent one is a no-op.
	AddFollow(ctx context.Context, followerID, followeeID string) error
	RemoveFollow(ctx context.Context, followerID, followeeID string) error
}
