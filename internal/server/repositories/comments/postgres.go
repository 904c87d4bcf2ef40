package comments

import (
	"context"
	"database/sql"
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

func (r *PostgresRepository) Create(ctx context.Context, comment *models.Comment) (*models.Comment, error) {

	query :=
		`INSERT INTO comments (post_id, author_id, content_markdown, parent_comment_id)
		 VALUES ($1::uuid, $2::uuid, $3, $4::uuid)
		 RETURNING id::text, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		comment.PostID, comment.AuthorID, comment.ContentMarkdown, comment.ParentCommentID).
		Scan(&comment.ID, &comment.CreatedAt, &comment.UpdatedAt)

	if err != nil {
		return nil, dbError(err)
	}

	return comment, nil
}

const commentColumns = `id::text, post_id::text, author_id::text, content_markdown, parent_comment_id::text, created_at, updated_at`

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1::uuid`

	comment := &models.Comment{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&comment.ID, &comment.PostID, &comment.AuthorID, &comment.ContentMarkdown,
		&comment.ParentCommentID, &comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbError(err)
	}
	return comment, nil
}

func (r *PostgresRepository) ListForPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE post_id = $1::uuid ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	comments := []*models.Comment{}
	for rows.Next() {
		comment := &models.Comment{}
		if err := rows.Scan(&comment.ID, &comment.PostID, &comment.AuthorID, &comment.ContentMarkdown,
			&comment.ParentCommentID, &comment.CreatedAt, &comment.UpdatedAt); err != nil {
			return nil, dbError(err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}
	return comments, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1::uuid`, id)
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
