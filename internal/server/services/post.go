package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/dbx"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"github.com/dmitrijs2005/postboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/postboard/internal/server/storage"
	"github.com/google/uuid"
)

// Vote kinds accepted by Vote. Anything else is an invalid argument.
const (
	VoteUp   = "upvote"
	VoteDown = "downvote"
)

// PostService provides post CRUD and the vote engine.
type PostService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       storage.BlobStore
}

func NewPostService(db *sql.DB, m repomanager.RepositoryManager, blobs storage.BlobStore) *PostService {
	return &PostService{db: db, repomanager: m, blobs: blobs}
}

// Upload is one incoming multipart file, already checked against the size
// and MIME allow-lists at the boundary.
type Upload struct {
	OriginalName string
	Mimetype     string
	Size         int64
	Content      io.Reader
}

// CreatePostParams carries the validated post creation input.
type CreatePostParams struct {
	AuthorID        string
	Title           string
	ContentMarkdown string
	Tags            []string
	Uploads         []Upload
}

// randomBlobName generates the stored filename for an upload, keeping the
// original extension.
func randomBlobName(originalName string) string {
	return uuid.New().String() + filepath.Ext(originalName)
}

// Create stores the post row and its attachments in one transaction. Blobs
// saved before a failure are removed again so a rejected post leaves no
// orphan files.
func (s *PostService) Create(ctx context.Context, p CreatePostParams) (*models.PostView, error) {
	post := &models.Post{
		AuthorID:        p.AuthorID,
		Title:           p.Title,
		ContentMarkdown: p.ContentMarkdown,
		Tags:            p.Tags,
	}

	var savedBlobs []string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Posts(tx)

		created, err := repo.Create(ctx, post)
		if err != nil {
			return err
		}
		post = created

		for _, up := range p.Uploads {
			name := randomBlobName(up.OriginalName)
			publicPath, err := s.blobs.Save(ctx, name, up.Content)
			if err != nil {
				return fmt.Errorf("saving attachment: %w", err)
			}
			savedBlobs = append(savedBlobs, name)

			a := &models.Attachment{
				Filename:     name,
				OriginalName: up.OriginalName,
				Mimetype:     up.Mimetype,
				Size:         up.Size,
				Path:         publicPath,
			}
			if _, err := repo.AddAttachment(ctx, post.ID, a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		for _, name := range savedBlobs {
			_ = s.blobs.Remove(ctx, name)
		}
		return nil, err
	}

	return s.view(ctx, post.ID)
}

// List returns posts newest-first, optionally restricted to one author.
func (s *PostService) List(ctx context.Context, authorID string) ([]*models.PostView, error) {
	posts, err := s.repomanager.Posts(s.db).List(ctx, authorID)
	if err != nil {
		return nil, err
	}
	return s.composeViews(ctx, s.db, posts)
}

// Get returns one post with author, vote sets and attachments populated.
func (s *PostService) Get(ctx context.Context, id string) (*models.PostView, error) {
	return s.view(ctx, id)
}

// Delete removes a post. Only the author may delete it; everyone else gets
// common.ErrorForbidden. Attachment rows cascade with the post and their
// blobs are removed best-effort afterwards. Comments are left in place.
func (s *PostService) Delete(ctx context.Context, id, requesterID string) error {
	var attachments []models.Attachment
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Posts(tx)

		post, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if post.AuthorID != requesterID {
			return common.ErrorForbidden
		}

		byPost, err := repo.AttachmentsForPosts(ctx, []string{id})
		if err != nil {
			return err
		}
		attachments = byPost[id]

		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	for _, a := range attachments {
		_ = s.blobs.Remove(ctx, a.Filename)
	}
	return nil
}

// applyVote is the toggle state machine over one user's stored vote value
// (+1, -1 or 0 for none): casting the same value again retracts it, any
// other cast replaces the current value.
func applyVote(current, cast int) int {
	if current == cast {
		return 0
	}
	return cast
}

// Vote applies kind for voterID on the post and returns the fresh
// projection. The read-modify-write runs under a row lock on the post, so
// concurrent voters serialize and the mutual-exclusion invariant of the
// vote sets holds.
func (s *PostService) Vote(ctx context.Context, postID, voterID, kind string) (*models.PostView, error) {
	var cast int
	switch kind {
	case VoteUp:
		cast = 1
	case VoteDown:
		cast = -1
	default:
		return nil, fmt.Errorf("%w: invalid vote type", common.ErrorInvalidArgument)
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Posts(tx)

		if err := repo.LockForUpdate(ctx, postID); err != nil {
			return err
		}
		current, err := repo.GetVote(ctx, postID, voterID)
		if err != nil {
			return err
		}

		next := applyVote(current, cast)
		if next == 0 {
			return repo.DeleteVote(ctx, postID, voterID)
		}
		return repo.UpsertVote(ctx, postID, voterID, next)
	})
	if err != nil {
		return nil, err
	}

	return s.view(ctx, postID)
}

func (s *PostService) view(ctx context.Context, id string) (*models.PostView, error) {
	post, err := s.repomanager.Posts(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.composeViews(ctx, s.db, []*models.Post{post})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// composeViews batch-fetches the vote sets, attachments and author
// references for a set of posts and assembles the projections.
func (s *PostService) composeViews(ctx context.Context, db dbx.DBTX, posts []*models.Post) ([]*models.PostView, error) {
	postIDs := make([]string, 0, len(posts))
	authorIDs := make([]string, 0, len(posts))
	seenAuthors := map[string]bool{}
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
		if !seenAuthors[p.AuthorID] {
			seenAuthors[p.AuthorID] = true
			authorIDs = append(authorIDs, p.AuthorID)
		}
	}

	postsRepo := s.repomanager.Posts(db)
	votes, err := postsRepo.VotesForPosts(ctx, postIDs)
	if err != nil {
		return nil, err
	}
	attachments, err := postsRepo.AttachmentsForPosts(ctx, postIDs)
	if err != nil {
		return nil, err
	}
	refs, err := s.repomanager.Users(db).Refs(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	refByID := make(map[string]models.UserRef, len(refs))
	for _, r := range refs {
		refByID[r.ID] = r
	}

	views := make([]*models.PostView, 0, len(posts))
	for _, p := range posts {
		sets := votes[p.ID]
		if sets.Upvotes == nil {
			sets.Upvotes = []string{}
		}
		if sets.Downvotes == nil {
			sets.Downvotes = []string{}
		}
		atts := attachments[p.ID]
		if atts == nil {
			atts = []models.Attachment{}
		}
		tags := p.Tags
		if tags == nil {
			tags = []string{}
		}
		views = append(views, &models.PostView{
			ID:              p.ID,
			Title:           p.Title,
			ContentMarkdown: p.ContentMarkdown,
			Author:          refByID[p.AuthorID],
			Tags:            tags,
			Upvotes:         sets.Upvotes,
			Downvotes:       sets.Downvotes,
			VoteCount:       sets.Score(),
			Attachments:     atts,
			CreatedAt:       p.CreatedAt,
			UpdatedAt:       p.UpdatedAt,
		})
	}
	return views, nil
}
