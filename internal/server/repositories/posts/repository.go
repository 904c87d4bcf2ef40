// Package posts persists post records, their vote sets and their attachment
// metadata.
package posts

import (
	"context"

	"github.com/dmitrijs2005/postboard/internal/server/models"
)

// Repository is the persistence boundary for posts. Vote mutations are meant
// to run on a transactional DBTX after LockForUpdate so concurrent voters on
// the same post serialize instead of losing updates.
type Repository interface {
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)

	// List returns posts newest-first, optionally filtered by author.
	// An empty authorID means all posts.
	List(ctx context.Context, authorID string) ([]*models.Post, error)

	Delete(ctx context.Context, id string) error

	AddAttachment(ctx context.Context, postID string, a *models.Attachment) (*models.Attachment, error)
	AttachmentsForPosts(ctx context.Context, postIDs []string) (map[string][]models.Attachment, error)

	// LockForUpdate takes a row lock on the post, returning
	// common.ErrorNotFound if it does not exist.
	LockForUpdate(ctx context.Context, id string) error

	// GetVote returns +1, -1 or 0 for the user's current vote on the post.
	GetVote(ctx context.Context, postID, userID string) (int, error)
	UpsertVote(ctx context.Context, postID, userID string, vote int) error
	DeleteVote(ctx context.Context, postID, userID string) error

	VotesForPosts(ctx context.Context, postIDs []string) (map[string]models.VoteSets, error)
}
