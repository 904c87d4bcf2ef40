package posts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/dbx"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// invalidTextRepresentation is raised when a value cannot be cast to its
// column type, typically a malformed uuid in an id position.
const invalidTextRepresentation = "22P02"

func dbError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation {
		return fmt.Errorf("%w: malformed id", common.ErrorInvalidArgument)
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {

	query :=
		`INSERT INTO posts (author_id, title, content_markdown, tags)
		 VALUES ($1::uuid, $2, $3, $4)
		 RETURNING id::text, created_at, updated_at
		 `

	if post.Tags == nil {
		post.Tags = []string{}
	}

	err := r.db.QueryRowContext(ctx, query,
		post.AuthorID, post.Title, post.ContentMarkdown, post.Tags).
		Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)

	if err != nil {
		return nil, dbError(err)
	}

	return post, nil
}

// tags is selected as JSON text because database/sql cannot scan a
// PostgreSQL array into a []string directly.
const postColumns = `id::text, author_id::text, title, content_markdown, to_json(tags)::text, created_at, updated_at`

func scanPost(s interface{ Scan(dest ...any) error }) (*models.Post, error) {
	post := &models.Post{}
	var tagsJSON string
	err := s.Scan(&post.ID, &post.AuthorID, &post.Title, &post.ContentMarkdown,
		&tagsJSON, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &post.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	return post, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1::uuid`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbError(err)
	}
	return post, nil
}

func (r *PostgresRepository) List(ctx context.Context, authorID string) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts ORDER BY created_at DESC`
	args := []any{}
	if authorID != "" {
		query = `SELECT ` + postColumns + ` FROM posts WHERE author_id = $1::uuid ORDER BY created_at DESC`
		args = append(args, authorID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	posts := []*models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, dbError(err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}
	return posts, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1::uuid`, id)
	if err != nil {
		return dbError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbError(err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) AddAttachment(ctx context.Context, postID string, a *models.Attachment) (*models.Attachment, error) {
	query :=
		`INSERT INTO attachments (post_id, filename, original_name, mimetype, size, path)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6)
		 RETURNING id::text
		 `
	err := r.db.QueryRowContext(ctx, query,
		postID, a.Filename, a.OriginalName, a.Mimetype, a.Size, a.Path).Scan(&a.ID)
	if err != nil {
		return nil, dbError(err)
	}
	return a, nil
}

func (r *PostgresRepository) AttachmentsForPosts(ctx context.Context, postIDs []string) (map[string][]models.Attachment, error) {
	result := map[string][]models.Attachment{}
	if len(postIDs) == 0 {
		return result, nil
	}

	query :=
		`SELECT post_id::text, id::text, filename, original_name, mimetype, size, path
		 FROM attachments
		 WHERE post_id = ANY($1::uuid[])
		 ORDER BY id
		 `
	rows, err := r.db.QueryContext(ctx, query, postIDs)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID string
		var a models.Attachment
		if err := rows.Scan(&postID, &a.ID, &a.Filename, &a.OriginalName, &a.Mimetype, &a.Size, &a.Path); err != nil {
			return nil, dbError(err)
		}
		result[postID] = append(result[postID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}
	return result, nil
}

func (r *PostgresRepository) LockForUpdate(ctx context.Context, id string) error {
	var locked string
	query := `SELECT id::text FROM posts WHERE id = $1::uuid FOR UPDATE`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return dbError(err)
	}
	return nil
}

func (r *PostgresRepository) GetVote(ctx context.Context, postID, userID string) (int, error) {
	var vote int
	query := `SELECT vote FROM post_votes WHERE post_id = $1::uuid AND user_id = $2::uuid`
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&vote)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, dbError(err)
	}
	return vote, nil
}

func (r *PostgresRepository) UpsertVote(ctx context.Context, postID, userID string, vote int) error {
	query :=
		`INSERT INTO post_votes (post_id, user_id, vote)
		 VALUES ($1::uuid, $2::uuid, $3)
		 ON CONFLICT (post_id, user_id) DO UPDATE SET vote = EXCLUDED.vote
		 `
	if _, err := r.db.ExecContext(ctx, query, postID, userID, vote); err != nil {
		return dbError(err)
	}
	return nil
}

func (r *PostgresRepository) DeleteVote(ctx context.Context, postID, userID string) error {
	query := `DELETE FROM post_votes WHERE post_id = $1::uuid AND user_id = $2::uuid`
	if _, err := r.db.ExecContext(ctx, query, postID, userID); err != nil {
		return dbError(err)
	}
	return nil
}

func (r *PostgresRepository) VotesForPosts(ctx context.Context, postIDs []string) (map[string]models.VoteSets, error) {
	result := map[string]models.VoteSets{}
	if len(postIDs) == 0 {
		return result, nil
	}

	query :=
		`SELECT post_id::text, user_id::text, vote
		 FROM post_votes
		 WHERE post_id = ANY($1::uuid[])
		 ORDER BY created_at
		 `
	rows, err := r.db.QueryContext(ctx, query, postIDs)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID, userID string
		var vote int
		if err := rows.Scan(&postID, &userID, &vote); err != nil {
			return nil, dbError(err)
		}
		sets := result[postID]
		if vote > 0 {
			sets.Upvotes = append(sets.Upvotes, userID)
		} else {
			sets.Downvotes = append(sets.Downvotes, userID)
		}
		result[postID] = sets
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}
	return result, nil
}
