// Package comments persists comment records.
package comments

import (
	"context"

	"github.com/dmitrijs2005/postboard/internal/server/models"
)

// Repository is the persistence boundary for comments. Deletion never
// cascades: removing a parent leaves its replies with a dangling parent
// reference.
type Repository interface {
	Create(ctx context.Context, comment *models.Comment) (*models.Comment, error)
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	ListForPost(ctx context.Context, postID string) ([]*models.Comment, error)
	Delete(ctx context.Context, id string) error
}
