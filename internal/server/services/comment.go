package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"github.com/dmitrijs2005/postboard/internal/server/repositories/repomanager"
)

// CommentService provides one-level-threaded comments on posts.
type CommentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewCommentService(db *sql.DB, m repomanager.RepositoryManager) *CommentService {
	return &CommentService{db: db, repomanager: m}
}

// Add creates a comment. Neither the post nor the parent comment is checked
// for existence; a reply to a deleted parent is still stored and listed.
func (s *CommentService) Add(ctx context.Context, postID, authorID, content string, parentCommentID *string) (*models.CommentView, error) {
	comment := &models.Comment{
		PostID:          postID,
		AuthorID:        authorID,
		ContentMarkdown: content,
		ParentCommentID: parentCommentID,
	}

	comment, err := s.repomanager.Comments(s.db).Create(ctx, comment)
	if err != nil {
		return nil, err
	}

	views, err := s.composeViews(ctx, []*models.Comment{comment})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// ListForPost returns the comments of a post oldest-first, with authors
// populated. An unknown post yields an empty list, not an error.
func (s *CommentService) ListForPost(ctx context.Context, postID string) ([]*models.CommentView, error) {
	comments, err := s.repomanager.Comments(s.db).ListForPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.composeViews(ctx, comments)
}

// Delete removes a comment. Only the author may delete it. Replies keep
// their parent reference and stay listed.
func (s *CommentService) Delete(ctx context.Context, id, requesterID string) error {
	repo := s.repomanager.Comments(s.db)

	comment, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if comment.AuthorID != requesterID {
		return common.ErrorForbidden
	}
	return repo.Delete(ctx, id)
}

func (s *CommentService) composeViews(ctx context.Context, comments []*models.Comment) ([]*models.CommentView, error) {
	authorIDs := make([]string, 0, len(comments))
	seen := map[string]bool{}
	for _, c := range comments {
		if !seen[c.AuthorID] {
			seen[c.AuthorID] = true
			authorIDs = append(authorIDs, c.AuthorID)
		}
	}

	refs, err := s.repomanager.Users(s.db).Refs(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	refByID := make(map[string]models.UserRef, len(refs))
	for _, r := range refs {
		refByID[r.ID] = r
	}

	views := make([]*models.CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, &models.CommentView{
			ID:              c.ID,
			PostID:          c.PostID,
			Author:          refByID[c.AuthorID],
			ContentMarkdown: c.ContentMarkdown,
			ParentComment:   c.ParentCommentID,
			CreatedAt:       c.CreatedAt,
			UpdatedAt:       c.UpdatedAt,
		})
	}
	return views, nil
}
